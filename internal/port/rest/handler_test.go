package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/port/rest/middleware"
)

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, fields map[string]any, images [][]byte) (*domain.Listing, error) {
	args := m.Called(ctx, fields, images)
	if l := args.Get(0); l != nil {
		return l.(*domain.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id string, fields map[string]any, images [][]byte) (*domain.Listing, error) {
	args := m.Called(ctx, id, fields, images)
	if l := args.Get(0); l != nil {
		return l.(*domain.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) DeleteImage(ctx context.Context, id, mediaID string) (*domain.Listing, error) {
	args := m.Called(ctx, id, mediaID)
	if l := args.Get(0); l != nil {
		return l.(*domain.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if l := args.Get(0); l != nil {
		return l.(*domain.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) List(ctx context.Context, filter domain.Filter) ([]*domain.Listing, error) {
	args := m.Called(ctx, filter)
	if l := args.Get(0); l != nil {
		return l.([]*domain.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(t *testing.T, svc *mockService) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	handler := NewListingHandler(svc, logger, false)
	health := NewHealthHandler(nil, nil, nil, nil, logger)
	router := NewRouter(handler, health, logger, RouterOptions{MaxBodyBytes: 1 << 20})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func sampleListing() *domain.Listing {
	return &domain.Listing{
		ID:       "66b000000000000000000001",
		Title:    "Prime plot near tarmac",
		Location: "kitengela",
		Type:     domain.TypePlot,
		Status:   domain.StatusAvailable,
		Price:    "KES 500,000",
		PriceNum: 500000,
		PlotSize: "50x100",
		Whatsapp: "254700000000",
		Images:   []string{"http://media.local/listing-media/listings/a.jpg"},
		MediaIDs: []string{"listings/a.jpg"},
	}
}

func decodeEnvelope(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestListReturnsBareArray(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, domain.Filter{}).Return([]*domain.Listing{sampleListing()}, nil)
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var listings []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&listings), "list body is a bare array")
	require.Len(t, listings, 1)
	assert.Equal(t, "Prime plot near tarmac", listings[0]["title"])
}

func TestListEmptyIsEmptyArray(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, domain.Filter{}).Return([]*domain.Listing{}, nil)
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	defer res.Body.Close()

	raw := new(bytes.Buffer)
	_, _ = raw.ReadFrom(res.Body)
	assert.Equal(t, "[]", strings.TrimSpace(raw.String()))
}

func TestListFiltersPassedThrough(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, domain.Filter{
		Status:   domain.StatusAvailable,
		Type:     domain.TypeRanch,
		Location: "naivasha",
	}).Return([]*domain.Listing{}, nil)
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings?status=available&type=Ranch&location=naivasha")
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	svc.AssertExpectations(t)
}

func TestListRejectsUnknownType(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings?type=apartment")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeEnvelope(t, res)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation failed", body["message"])
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetNotFoundEnvelope(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrListingNotFound)
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings/missing")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeEnvelope(t, res)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "listing not found", body["message"])
}

func multipartBody(t *testing.T, fields map[string]string, images [][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i, img := range images {
		part, err := w.CreateFormFile("images", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err, "image %d", i)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestCreateMultipart(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(fields map[string]any) bool {
		return fields["title"] == "Prime plot near tarmac" && fields["priceNum"] == "500000"
	}), mock.MatchedBy(func(images [][]byte) bool {
		return len(images) == 1 && string(images[0]) == "fake-jpeg-bytes"
	})).Return(sampleListing(), nil)
	srv := newTestServer(t, svc)

	body, contentType := multipartBody(t, map[string]string{
		"title":    "Prime plot near tarmac",
		"location": "Kitengela",
		"type":     "plot",
		"priceNum": "500000",
		"plotSize": "50x100",
	}, [][]byte{[]byte("fake-jpeg-bytes")})

	res, err := http.Post(srv.URL+"/api/listings", contentType, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, true, envelope["success"])
	listing, ok := envelope["listing"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "66b000000000000000000001", listing["id"])
}

func TestCreateValidationErrorEnvelope(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, &domain.ValidationError{
		Violations: []domain.FieldViolation{
			{Field: "title", Message: "is required"},
			{Field: "priceNum", Message: "must not be negative"},
		},
	})
	srv := newTestServer(t, svc)

	body, contentType := multipartBody(t, map[string]string{"priceNum": "-5"}, nil)
	res, err := http.Post(srv.URL+"/api/listings", contentType, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, "validation failed", envelope["message"])
	errs, ok := envelope["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errs, 2)
}

func TestCreateRejectsTooManyImageParts(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(t, svc)

	images := make([][]byte, domain.MaxImagesPerListing+1)
	for i := range images {
		images[i] = []byte("x")
	}
	body, contentType := multipartBody(t, map[string]string{"title": "t"}, images)

	res, err := http.Post(srv.URL+"/api/listings", contentType, body)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateUploadTooLargeMapsTo413(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, &domain.UploadError{
		Kind: domain.UploadFailureTooLarge,
		Err:  errors.New("file is 6000000 bytes, limit is 5242880"),
	})
	srv := newTestServer(t, svc)

	body, contentType := multipartBody(t, map[string]string{"title": "t"}, [][]byte{[]byte("big")})
	res, err := http.Post(srv.URL+"/api/listings", contentType, body)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
}

func TestPatchWithJSONBody(t *testing.T) {
	svc := &mockService{}
	updated := sampleListing()
	updated.Status = domain.StatusSold
	svc.On("Update", mock.Anything, updated.ID, map[string]any{"status": "sold"}, [][]byte(nil)).
		Return(updated, nil)
	srv := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/listings/"+updated.ID,
		strings.NewReader(`{"status":"sold"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	listing := envelope["listing"].(map[string]any)
	assert.Equal(t, "sold", listing["status"])
}

func TestPatchRejectsMalformedJSON(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/listings/x", strings.NewReader(`{oops`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteImage(t *testing.T) {
	svc := &mockService{}
	remaining := sampleListing()
	remaining.Images = []string{}
	remaining.MediaIDs = []string{}
	svc.On("DeleteImage", mock.Anything, remaining.ID, "listings/a.jpg").Return(remaining, nil)
	srv := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/listings/"+remaining.ID+"/image",
		strings.NewReader(`{"mediaId":"listings/a.jpg"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, true, envelope["success"])
}

func TestDeleteImageRequiresMediaID(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/listings/x/image", strings.NewReader(`{}`))
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	svc.AssertNotCalled(t, "DeleteImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteListing(t *testing.T) {
	svc := &mockService{}
	svc.On("Delete", mock.Anything, "66b000000000000000000001").Return(nil)
	srv := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/listings/66b000000000000000000001", nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "listing deleted", envelope["message"])
}

func TestInternalErrorIsRedacted(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, "boom").Return(nil, errors.New("mongo: socket was unexpectedly closed"))
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/api/listings/boom")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, "internal server error", envelope["message"], "internals are not leaked outside dev mode")
}

func TestHealthEndpointsBypassRateLimit(t *testing.T) {
	svc := &mockService{}
	logger := zap.NewNop()
	handler := NewListingHandler(svc, logger, false)
	health := NewHealthHandler(nil, nil, nil, nil, logger)
	router := NewRouter(handler, health, logger, RouterOptions{
		MaxBodyBytes: 1 << 20,
		Limiter:      middleware.NewRateLimiter(1, time.Minute),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	for i := 0; i < 5; i++ {
		res, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}
}

func TestRateLimitedEnvelope(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, domain.Filter{}).Return([]*domain.Listing{}, nil)
	logger := zap.NewNop()
	handler := NewListingHandler(svc, logger, false)
	health := NewHealthHandler(nil, nil, nil, nil, logger)
	router := NewRouter(handler, health, logger, RouterOptions{
		MaxBodyBytes: 1 << 20,
		Limiter:      middleware.NewRateLimiter(1, time.Minute),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	envelope := decodeEnvelope(t, res)
	assert.Equal(t, false, envelope["success"])
}
