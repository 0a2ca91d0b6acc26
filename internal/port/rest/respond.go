package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

// errorEnvelope is the uniform error shape: {success:false, message, errors?}.
type errorEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// listingEnvelope wraps single-resource successes. List endpoints return a
// bare array instead.
type listingEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Listing *domain.Listing `json:"listing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message, Errors: errs})
}

func writeListing(w http.ResponseWriter, status int, message string, l *domain.Listing) {
	writeJSON(w, status, listingEnvelope{Success: true, Message: message, Listing: l})
}

// writeMappedError translates the domain error taxonomy into HTTP statuses
// and the error envelope. Unanticipated errors are redacted unless the
// handler runs in dev mode.
func (h *ListingHandler) writeMappedError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation failed", validationErr.Messages()...)
		return
	}

	if errors.Is(err, domain.ErrListingNotFound) {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if errors.Is(err, domain.ErrMediaNotFound) {
		writeError(w, http.StatusNotFound, "image not found on listing")
		return
	}

	var uploadErr *domain.UploadError
	if errors.As(err, &uploadErr) {
		status := http.StatusBadRequest
		switch uploadErr.Kind {
		case domain.UploadFailureTooLarge:
			status = http.StatusRequestEntityTooLarge
		case domain.UploadFailureTimeout:
			status = http.StatusRequestTimeout
		}
		writeError(w, status, "image upload failed: "+uploadErr.Error())
		return
	}

	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Duplicate {
			writeError(w, http.StatusConflict, "a conflicting listing already exists")
			return
		}
		h.logger.Error("store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, h.redact("storage failure", err))
		return
	}

	h.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, h.redact("internal server error", err))
}

func (h *ListingHandler) redact(generic string, err error) string {
	if h.devMode {
		return err.Error()
	}
	return generic
}
