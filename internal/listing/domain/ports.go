package domain

import "context"

type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) (string, error)
	Update(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	List(ctx context.Context, filter Filter) ([]*Listing, error)
}

// UploadResult describes one stored media asset. MediaID is the opaque
// handle the media host needs to delete the asset later.
type UploadResult struct {
	URL     string
	MediaID string
	Width   int
	Height  int
	Format  string
	Bytes   int
}

type MediaStorage interface {
	Upload(ctx context.Context, data []byte, folder string) (*UploadResult, error)
	Delete(ctx context.Context, mediaID string) error
}
