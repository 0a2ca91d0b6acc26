package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/validate"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/platform/metrics"
)

// EventPublisher notifies downstream consumers of listing mutations.
// Publish failures are warn-only side effects.
type EventPublisher interface {
	ListingCreated(ctx context.Context, listing *domain.Listing) error
	ListingUpdated(ctx context.Context, listing *domain.Listing) error
	ListingDeleted(ctx context.Context, id string) error
}

// ListingCache caches listings by id. Get returns (nil, nil) on a miss.
type ListingCache interface {
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Set(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// Options tunes orchestration behavior.
type Options struct {
	Defaults      validate.Defaults
	MediaFolder   string
	UploadTimeout time.Duration
}

// ListingUsecase orchestrates listing CRUD against the record store and the
// media host. Cache, publisher and metrics may be nil; they are optional
// side channels and never affect the outcome of an operation.
type ListingUsecase struct {
	repo      domain.ListingRepository
	storage   domain.MediaStorage
	cache     ListingCache
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	defaults      validate.Defaults
	mediaFolder   string
	uploadTimeout time.Duration
}

func NewListingUsecase(
	repo domain.ListingRepository,
	storage domain.MediaStorage,
	cache ListingCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	log *zap.Logger,
	opts Options,
) *ListingUsecase {
	if opts.MediaFolder == "" {
		opts.MediaFolder = "listings"
	}
	return &ListingUsecase{
		repo:          repo,
		storage:       storage,
		cache:         cache,
		publisher:     publisher,
		metrics:       m,
		logger:        log,
		defaults:      opts.Defaults,
		mediaFolder:   opts.MediaFolder,
		uploadTimeout: opts.UploadTimeout,
	}
}

type uploadOutcome struct {
	result *domain.UploadResult
	err    error
}

// uploadAll fans the buffers out to the media host concurrently. Every
// upload is attempted regardless of its siblings; outcomes keep the input
// order so callers can pair results with their originating files.
func (uc *ListingUsecase) uploadAll(ctx context.Context, buffers [][]byte) []uploadOutcome {
	outcomes := make([]uploadOutcome, len(buffers))
	var wg sync.WaitGroup
	for i, buf := range buffers {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			upCtx := ctx
			if uc.uploadTimeout > 0 {
				var cancel context.CancelFunc
				upCtx, cancel = context.WithTimeout(ctx, uc.uploadTimeout)
				defer cancel()
			}
			res, err := uc.storage.Upload(upCtx, data, uc.mediaFolder)
			outcomes[i] = uploadOutcome{result: res, err: err}
		}(i, buf)
	}
	wg.Wait()
	return outcomes
}

// collectUploads splits outcomes into parallel URL and media-id lists,
// logging and counting each failure. The first error is kept so an
// all-failed batch can be reported with its cause.
func (uc *ListingUsecase) collectUploads(outcomes []uploadOutcome) (urls, mediaIDs []string, firstErr error) {
	for i, out := range outcomes {
		if out.err != nil {
			uc.logger.Warn("image upload failed",
				zap.Int("index", i),
				zap.Error(out.err),
			)
			if uc.metrics != nil {
				uc.metrics.UploadFailures.Inc()
			}
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		urls = append(urls, out.result.URL)
		mediaIDs = append(mediaIDs, out.result.MediaID)
		if uc.metrics != nil {
			uc.metrics.ImagesUploaded.Inc()
		}
	}
	return urls, mediaIDs, firstErr
}

func asUploadError(err error) error {
	var ue *domain.UploadError
	if errors.As(err, &ue) {
		return ue
	}
	return &domain.UploadError{Kind: domain.UploadFailureRemote, Err: err}
}

// Create validates fields, uploads the image buffers and persists the new
// listing. Partial upload success is accepted; the record carries whichever
// images made it. When every upload in a non-empty batch fails, nothing is
// persisted.
func (uc *ListingUsecase) Create(ctx context.Context, fields map[string]any, images [][]byte) (*domain.Listing, error) {
	listing, err := validate.CreateListing(fields, uc.defaults)
	if err != nil {
		return nil, err
	}
	if len(images) > domain.MaxImagesPerListing {
		return nil, &domain.ValidationError{Violations: []domain.FieldViolation{{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images per listing", domain.MaxImagesPerListing),
		}}}
	}

	urls, mediaIDs, firstErr := uc.collectUploads(uc.uploadAll(ctx, images))
	if len(images) > 0 && len(urls) == 0 {
		return nil, asUploadError(firstErr)
	}
	if len(urls) > 0 {
		listing.Images = urls
		listing.MediaIDs = mediaIDs
	}

	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	id, err := uc.repo.Create(ctx, listing)
	if err != nil {
		uc.logger.Error("failed to persist listing, releasing uploaded assets",
			zap.Int("uploaded", len(mediaIDs)),
			zap.Error(err),
		)
		uc.releaseAssets(mediaIDs)
		return nil, err
	}
	listing.ID = id

	uc.cacheSet(ctx, listing)
	if uc.publisher != nil {
		if pubErr := uc.publisher.ListingCreated(ctx, listing); pubErr != nil {
			uc.logger.Warn("failed to publish listing created event", zap.String("listing_id", id), zap.Error(pubErr))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingsCreated.Inc()
	}
	return listing, nil
}

// Update applies a partial patch and appends any newly uploaded images.
// Existing images are never dropped implicitly: only an explicit images
// keep-list removes entries, and the parallel media ids are dropped by
// position so the two lists stay in lock-step.
func (uc *ListingUsecase) Update(ctx context.Context, id string, fields map[string]any, images [][]byte) (*domain.Listing, error) {
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := validate.PatchListing(fields)
	if err != nil {
		return nil, err
	}

	var removedIDs []string
	if patch.Images != nil {
		removedIDs = reconcileKeptImages(listing, *patch.Images)
	}
	patch.Apply(listing)

	if len(images) > 0 {
		if len(listing.Images)+len(images) > domain.MaxImagesPerListing {
			return nil, &domain.ValidationError{Violations: []domain.FieldViolation{{
				Field:   "images",
				Message: fmt.Sprintf("at most %d images per listing", domain.MaxImagesPerListing),
			}}}
		}
		urls, mediaIDs, firstErr := uc.collectUploads(uc.uploadAll(ctx, images))
		if len(urls) == 0 {
			return nil, asUploadError(firstErr)
		}
		listing.Images = append(listing.Images, urls...)
		listing.MediaIDs = append(listing.MediaIDs, mediaIDs...)
	}

	listing.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, listing); err != nil {
		return nil, err
	}

	// Remote cleanup of removed assets happens after the record update so
	// the stored listing never references deleted assets, even if cleanup
	// fails.
	uc.releaseAssets(removedIDs)

	uc.cacheDelete(ctx, id)
	if uc.publisher != nil {
		if pubErr := uc.publisher.ListingUpdated(ctx, listing); pubErr != nil {
			uc.logger.Warn("failed to publish listing updated event", zap.String("listing_id", id), zap.Error(pubErr))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingsUpdated.Inc()
	}
	return listing, nil
}

// DeleteImage removes one image and its media id from a listing. The record
// is updated first; remote deletion is best-effort afterwards so the stored
// state stays authoritative even when cleanup lags.
func (uc *ListingUsecase) DeleteImage(ctx context.Context, id, mediaID string) (*domain.Listing, error) {
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, mid := range listing.MediaIDs {
		if mid == mediaID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.ErrMediaNotFound
	}

	listing.MediaIDs = append(listing.MediaIDs[:idx], listing.MediaIDs[idx+1:]...)
	if idx < len(listing.Images) {
		listing.Images = append(listing.Images[:idx], listing.Images[idx+1:]...)
	}
	listing.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, listing); err != nil {
		return nil, err
	}

	uc.releaseAssets([]string{mediaID})

	uc.cacheDelete(ctx, id)
	if uc.publisher != nil {
		if pubErr := uc.publisher.ListingUpdated(ctx, listing); pubErr != nil {
			uc.logger.Warn("failed to publish listing updated event", zap.String("listing_id", id), zap.Error(pubErr))
		}
	}
	return listing, nil
}

// Delete removes the listing record after attempting remote deletion of all
// its media assets. Remote failures are logged per asset and never block
// record deletion.
func (uc *ListingUsecase) Delete(ctx context.Context, id string) error {
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, mediaID := range listing.MediaIDs {
		wg.Add(1)
		go func(mediaID string) {
			defer wg.Done()
			if delErr := uc.storage.Delete(ctx, mediaID); delErr != nil {
				uc.logger.Warn("failed to delete media asset, record deletion proceeds",
					zap.String("listing_id", id),
					zap.String("media_id", mediaID),
					zap.Error(delErr),
				)
			}
		}(mediaID)
	}
	wg.Wait()

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	uc.cacheDelete(ctx, id)
	if uc.publisher != nil {
		if pubErr := uc.publisher.ListingDeleted(ctx, id); pubErr != nil {
			uc.logger.Warn("failed to publish listing deleted event", zap.String("listing_id", id), zap.Error(pubErr))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingsDeleted.Inc()
	}
	return nil
}

// Get reads through the cache when one is configured.
func (uc *ListingUsecase) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, id)
		if err != nil {
			uc.logger.Warn("listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.cacheSet(ctx, listing)
	return listing, nil
}

func (uc *ListingUsecase) List(ctx context.Context, filter domain.Filter) ([]*domain.Listing, error) {
	listings, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []*domain.Listing{}
	}
	return listings, nil
}

// releaseAssets deletes remote assets best-effort. It runs on a detached
// context so cleanup outlives a cancelled request, and it reports how many
// deletions succeeded; failures are logged per asset and never propagate.
func (uc *ListingUsecase) releaseAssets(mediaIDs []string) (deleted int) {
	if len(mediaIDs) == 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, mediaID := range mediaIDs {
		if err := uc.storage.Delete(ctx, mediaID); err != nil {
			uc.logger.Warn("best-effort media cleanup failed",
				zap.String("media_id", mediaID),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}
	return deleted
}

func (uc *ListingUsecase) cacheSet(ctx context.Context, listing *domain.Listing) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, listing); err != nil {
		uc.logger.Warn("failed to cache listing", zap.String("listing_id", listing.ID), zap.Error(err))
	}
}

func (uc *ListingUsecase) cacheDelete(ctx context.Context, id string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, id); err != nil {
		uc.logger.Warn("failed to invalidate cached listing", zap.String("listing_id", id), zap.Error(err))
	}
}

// reconcileKeptImages keeps only the stored images whose URLs appear in the
// client's keep-list, preserving stored order, and drops the parallel media
// ids by position. URLs the listing does not contain are ignored. Returns
// the media ids that were dropped.
func reconcileKeptImages(l *domain.Listing, keep []string) (removed []string) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, url := range keep {
		keepSet[url] = struct{}{}
	}

	images := make([]string, 0, len(l.Images))
	mediaIDs := make([]string, 0, len(l.MediaIDs))
	for i, url := range l.Images {
		if _, ok := keepSet[url]; ok {
			images = append(images, url)
			if i < len(l.MediaIDs) {
				mediaIDs = append(mediaIDs, l.MediaIDs[i])
			}
			continue
		}
		if i < len(l.MediaIDs) {
			removed = append(removed, l.MediaIDs[i])
		}
	}
	l.Images = images
	l.MediaIDs = mediaIDs
	return removed
}
