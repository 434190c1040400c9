package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kusina-order-service/pkg/response"
)

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// decodeJSON writes the validation error itself; callers just return on
// false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
		return false
	}
	return true
}

// decodeOptionalJSON fills dst when a body is present; an empty or absent
// body leaves dst zeroed. For endpoints whose whole body is optional.
func decodeOptionalJSON(r *http.Request, dst any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(dst)
}

// nextOrderNumber allocates the next sequential POS order number.
func (h *Handler) nextOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := h.DB.QueryRow(ctx, `select nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%04d", seq), nil
}

// validateProofReference enforces the public proof form rule: at least n
// characters, alphanumeric only.
func validateProofReference(reference string, minLength int) bool {
	ref := strings.TrimSpace(reference)
	if len(ref) < minLength {
		return false
	}
	for _, r := range ref {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// readUploadedImage accepts either a multipart "file" field or a JSON body
// with a base64 "imageBase64" payload, the fallback path for browsers that
// fail multipart uploads.
func (h *Handler) readUploadedImage(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	limit := h.Config.MaxFileSizeBytes

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, fmt.Errorf("file exceeds the %d byte limit", limit)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file field is required")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("file exceeds the %d byte limit", limit)
		}
		return data, nil
	}

	var body struct {
		ImageBase64 string `json:"imageBase64"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, limit*2)).Decode(&body); err != nil {
		return nil, fmt.Errorf("expected multipart upload or base64 JSON body")
	}
	raw := body.ImageBase64
	// Data URLs carry a media-type prefix.
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("imageBase64 is not valid base64")
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds the %d byte limit", limit)
	}
	return data, nil
}
