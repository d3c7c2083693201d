package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"layout-snapshot/internal/buffer"
	"layout-snapshot/internal/codec"
	"layout-snapshot/internal/myhttp"

	"golang.org/x/xerrors"
)

const maxUploadBytes = 64 << 20

func readImage(r *http.Request, field string) (*buffer.Buffer, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, xerrors.Errorf("missing %s image: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s image: %w", field, err)
	}

	img, err := codec.Decode(header.Filename, data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func formFloat(r *http.Request, key string, defaultValue float64) (float64, error) {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, xerrors.Errorf("invalid %s: %s", key, value)
	}
	return f, nil
}

func formBool(r *http.Request, key string, defaultValue bool) (bool, error) {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, xerrors.Errorf("invalid %s: %s", key, value)
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		myhttp.Logger(r.Context()).Error("failed to marshal json", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
