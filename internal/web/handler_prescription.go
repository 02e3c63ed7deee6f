package web

import (
	"errors"
	"io"
	"net/http"

	"carebridge/internal/ocr"
	"carebridge/internal/preprocess"
)

const maxImageSize = 10 * 1024 * 1024 // 10 MB

// allowedImageTypes is the set of MIME types accepted for uploads.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readImageUpload parses the multipart form and returns the validated image
// bytes and MIME type. On failure it writes the error response itself and
// returns ok=false.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request) (data []byte, mimeType string, ok bool) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form", s.logger)
		return nil, "", false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required", s.logger)
		return nil, "", false
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Error("failed to close upload file", "error", err)
		}
	}()

	data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file", s.logger)
		s.logger.Error("read upload failed", "error", err)
		return nil, "", false
	}

	mimeType, valid := allowedImageMIME(data)
	if !valid {
		writeError(w, http.StatusBadRequest, "unsupported image format", s.logger)
		return nil, "", false
	}
	return data, mimeType, true
}

func (s *Server) handleProcessPrescription(w http.ResponseWriter, r *http.Request) {
	imageData, mimeType, ok := s.readImageUpload(w, r)
	if !ok {
		return
	}

	result, err := s.prescriptions.Process(r.Context(), imageData, mimeType)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			writeError(w, http.StatusBadRequest, "could not parse image", s.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process prescription", s.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, s.logger)
}

// handleDebugImage returns the preprocessed rendition of an upload so OCR
// quality problems can be inspected by eye. Registered only when debug
// endpoints are enabled.
func (s *Server) handleDebugImage(w http.ResponseWriter, r *http.Request) {
	imageData, mimeType, ok := s.readImageUpload(w, r)
	if !ok {
		return
	}

	out, outMIME := preprocess.Apply(imageData, mimeType)
	w.Header().Set("Content-Type", outMIME)
	if _, err := w.Write(out); err != nil {
		s.logger.Error("failed to write debug image", "error", err)
	}
}
