package routes

import (
	"encoding/base64"
	"errors"
	"net/http"

	"layout-snapshot/internal/codec"
	"layout-snapshot/internal/config"
	diffimage "layout-snapshot/internal/diff/image"
	"layout-snapshot/internal/myhttp"
	"layout-snapshot/internal/storage"
	"layout-snapshot/internal/tolerance"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CompareDefaults apply to form fields a request leaves out.
type CompareDefaults struct {
	Threshold           float64
	IncludeAA           bool
	PixelShiftTolerance float64
}

type CompareResponse struct {
	Width          uint32  `json:"width"`
	Height         uint32  `json:"height"`
	DiffData       string  `json:"diffData"`
	DiffURL        string  `json:"diffURL,omitempty"`
	DiffPixelCount uint64  `json:"diffPixelCount"`
	DiffAmount     float64 `json:"diffAmount"`
	AllowedPixels  uint64  `json:"allowedPixels"`
	Passed         bool    `json:"passed"`
}

// Compare diffs the multipart images "reference" and "current". With a
// "diffKey" field the diff image is also written to storage under that key.
func Compare(defaults CompareDefaults, storageClient storage.Storage, comparisons metric.Int64Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		threshold, err := formFloat(r, "threshold", defaults.Threshold)
		if err == nil {
			err = config.ValidateThreshold(threshold)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		includeAA, err := formBool(r, "includeAA", defaults.IncludeAA)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		shift, err := formFloat(r, "pixelShiftTolerance", defaults.PixelShiftTolerance)
		if err == nil {
			err = config.ValidatePixelShiftTolerance(shift)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		diffKey := r.FormValue("diffKey")
		if diffKey != "" && !validKey(diffKey) {
			http.Error(w, "Invalid diff key", http.StatusBadRequest)
			return
		}

		reference, err := readImage(r, "reference")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		current, err := readImage(r, "current")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := diffimage.NewPixelDiff(diffimage.Options{
			Threshold: threshold,
			IncludeAA: includeAA,
			Alpha:     diffimage.DefaultOptions().Alpha,
		}).Calculate(reference, current)
		if err != nil {
			var mismatch *diffimage.DimensionMismatchError
			if errors.As(err, &mismatch) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			logger.Error("failed to compare images", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		verdict := tolerance.Evaluate(result.DiffPixelCount, reference.Width, shift)

		diffData, err := codec.Encode(result.Image)
		if err != nil {
			logger.Error("failed to encode diff image", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		response := CompareResponse{
			Width:          reference.Width,
			Height:         reference.Height,
			DiffData:       base64.StdEncoding.EncodeToString(diffData),
			DiffPixelCount: verdict.ActualPixels,
			DiffAmount:     result.DiffAmount,
			AllowedPixels:  verdict.AllowedPixels,
			Passed:         verdict.Passed,
		}

		if diffKey != "" && storageClient != nil {
			url, err := storageClient.Put(r.Context(), diffKey, diffData)
			if err != nil {
				logger.Error("failed to store diff image", "key", diffKey, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffURL = url
		}

		comparisons.Add(r.Context(), 1, metric.WithAttributes(attribute.Bool("passed", verdict.Passed)))
		logger.Info("compared images", "diffPixels", verdict.ActualPixels, "allowedPixels", verdict.AllowedPixels, "passed", verdict.Passed)

		writeJSON(w, r, response)
	}
}
