package routes

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"layout-snapshot/internal/codec"
	"layout-snapshot/internal/myhttp"
	"layout-snapshot/internal/slice"
)

type SliceResponse struct {
	Width  uint32          `json:"width"`
	Height uint32          `json:"height"`
	Strips []StripResponse `json:"strips"`
}

type StripResponse struct {
	Index  uint32 `json:"index"`
	YStart uint32 `json:"yStart"`
	YEnd   uint32 `json:"yEnd"`
	Data   string `json:"data"`
}

// Slice cuts the multipart image "image" into "parts" horizontal strips.
func Slice(defaultParts uint32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		parts := defaultParts
		if value := r.FormValue("parts"); value != "" {
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n == 0 {
				http.Error(w, "parts must be a positive integer", http.StatusBadRequest)
				return
			}
			parts = uint32(n)
		}

		img, err := readImage(r, "image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		strips, err := slice.Slice(img, parts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		response := SliceResponse{
			Width:  img.Width,
			Height: img.Height,
			Strips: make([]StripResponse, 0, len(strips)),
		}
		for _, strip := range strips {
			data, err := codec.Encode(strip.Image)
			if err != nil {
				myhttp.Logger(r.Context()).Error("failed to encode strip", "index", strip.Index, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.Strips = append(response.Strips, StripResponse{
				Index:  strip.Index,
				YStart: strip.YStart,
				YEnd:   strip.YEnd,
				Data:   base64.StdEncoding.EncodeToString(data),
			})
		}

		writeJSON(w, r, response)
	}
}
