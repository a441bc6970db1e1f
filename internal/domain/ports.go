package domain

import "context"

type ImageRepository interface {
	CreateImage(ctx context.Context, in NewImage) (Image, error)
	// UpdateImage returns ErrNotFound unless id exists and is owned by ownerID.
	UpdateImage(ctx context.Context, id, ownerID int64, p ImagePatch) (Image, error)
	// DeleteImage removes the image and its hotel links, returning the hotels affected.
	DeleteImage(ctx context.Context, id, ownerID int64) ([]int64, error)
	// DeleteImages removes the subset of ids owned by ownerID; others are skipped.
	DeleteImages(ctx context.Context, ids []int64, ownerID int64) (deleted int64, hotels []int64, err error)
	GetImage(ctx context.Context, id, ownerID int64) (Image, error)
	ListImages(ctx context.Context, ownerID int64, f ImageFilter) ([]Image, error)
}

type HotelImageRepository interface {
	// AttachImage returns ErrConflict for a duplicate pair and ErrNotFound when
	// the hotel or image does not exist.
	AttachImage(ctx context.Context, hotelID, imageID int64, order int) (HotelImage, error)
	// SetPrimary clears every primary flag of the hotel and sets it on the
	// (hotelID, imageID) link as one atomic unit.
	SetPrimary(ctx context.Context, hotelID, imageID int64) (HotelImage, error)
	DeleteHotelImage(ctx context.Context, id int64) (HotelImage, error)
	ListByHotel(ctx context.Context, hotelID int64) ([]HotelImageWithImage, error)
	PrimaryByHotel(ctx context.Context, hotelID int64) (HotelImageWithImage, error)
	CountByHotel(ctx context.Context, hotelID int64) (int, error)
	HotelIDsForImage(ctx context.Context, imageID int64) ([]int64, error)
}

type HotelRepository interface {
	// UpsertHotel writes name/city and, when h.Image is non-nil, the inline image.
	UpsertHotel(ctx context.Context, h Hotel) error
	GetHotel(ctx context.Context, id int64) (Hotel, error)
	LogMiss(ctx context.Context, id int64, status int, reason string) error
}

// Store groups every repository the services need.
type Store interface {
	ImageRepository
	HotelImageRepository
	HotelRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// HotelLocker serializes work scoped to one hotel. The returned func releases the lock.
type HotelLocker interface {
	Lock(ctx context.Context, hotelID int64) (func(), error)
}

// PhotoSource is the remote hotel content provider used by the importer.
type PhotoSource interface {
	GetProperty(ctx context.Context, id int64) (map[string]any, error)
	GetPhoto(ctx context.Context, url string) (Photo, error)
}

type Photo struct {
	ContentType string
	Data        []byte
}
