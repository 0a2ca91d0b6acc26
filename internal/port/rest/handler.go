package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

// imagesFieldName is the multipart field carrying image files.
const imagesFieldName = "images"

const multipartMemoryLimit = 32 << 20

// ListingService is the orchestration surface the HTTP layer maps onto.
type ListingService interface {
	Create(ctx context.Context, fields map[string]any, images [][]byte) (*domain.Listing, error)
	Update(ctx context.Context, id string, fields map[string]any, images [][]byte) (*domain.Listing, error)
	Delete(ctx context.Context, id string) error
	DeleteImage(ctx context.Context, id, mediaID string) (*domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter domain.Filter) ([]*domain.Listing, error)
}

type ListingHandler struct {
	service ListingService
	logger  *zap.Logger
	devMode bool
}

func NewListingHandler(service ListingService, logger *zap.Logger, devMode bool) *ListingHandler {
	return &ListingHandler{service: service, logger: logger, devMode: devMode}
}

// HandleList returns a bare array of listings, newest first.
func (h *ListingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter domain.Filter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParseListingStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation failed", fmt.Sprintf("status: %q is not a recognized status", raw))
			return
		}
		filter.Status = status
	}
	if raw := q.Get("type"); raw != "" {
		listingType, ok := domain.ParseListingType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation failed", fmt.Sprintf("type: %q is not a recognized listing type", raw))
			return
		}
		filter.Type = listingType
	}
	filter.Location = strings.TrimSpace(q.Get("location"))

	listings, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeListing(w, http.StatusOK, "", listing)
}

// HandleCreate accepts a multipart form with listing fields and up to ten
// image parts under the "images" field.
func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	fields, images, err := h.parseListingForm(r)
	if err != nil {
		h.writeFormError(w, err)
		return
	}

	listing, err := h.service.Create(r.Context(), fields, images)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeListing(w, http.StatusCreated, "listing created", listing)
}

// HandlePatch applies a partial update. The body is JSON, or multipart when
// new images are attached.
func (h *ListingHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		fields map[string]any
		images [][]byte
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		fields, images, err = h.parseListingForm(r)
	} else {
		fields, err = decodeJSONBody(r)
	}
	if err != nil {
		h.writeFormError(w, err)
		return
	}

	listing, err := h.service.Update(r.Context(), id, fields, images)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeListing(w, http.StatusOK, "listing updated", listing)
}

func (h *ListingHandler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		MediaID string `json:"mediaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MediaID == "" {
		writeError(w, http.StatusBadRequest, "mediaId is required")
		return
	}

	listing, err := h.service.DeleteImage(r.Context(), id, body.MediaID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeListing(w, http.StatusOK, "image removed", listing)
}

func (h *ListingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "listing deleted",
	})
}

// parseListingForm flattens a multipart form into a raw field map and reads
// the image parts. Repeated form keys become lists; single values stay
// strings so the validation layer can decode JSON-encoded lists.
func (h *ListingHandler) parseListingForm(r *http.Request) (map[string]any, [][]byte, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	fields := make(map[string]any, len(r.MultipartForm.Value))
	for key, vals := range r.MultipartForm.Value {
		switch len(vals) {
		case 0:
		case 1:
			fields[key] = vals[0]
		default:
			fields[key] = vals
		}
	}

	files := r.MultipartForm.File[imagesFieldName]
	if len(files) > domain.MaxImagesPerListing {
		return nil, nil, &domain.ValidationError{Violations: []domain.FieldViolation{{
			Field:   imagesFieldName,
			Message: fmt.Sprintf("at most %d images per request", domain.MaxImagesPerListing),
		}}}
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open uploaded file %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read uploaded file %s: %w", fh.Filename, err)
		}
		images = append(images, data)
	}
	return fields, images, nil
}

func decodeJSONBody(r *http.Request) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return fields, nil
}

// writeFormError distinguishes validation problems from malformed or
// oversized request bodies.
func (h *ListingHandler) writeFormError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation failed", validationErr.Messages()...)
		return
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
