package domain

import "time"

// Image is a standalone stored image. Subtype and Size are derived from
// Payload and are only ever written together with it.
type Image struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description *string
	Payload     string
	Subtype     string
	Size        int64
	Width       *int
	Height      *int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DerivedMetadata is computed from a validated payload.
type DerivedMetadata struct {
	Subtype string
	Size    int64
	Width   *int
	Height  *int
}

// NewImage is the insert shape for a validated image.
type NewImage struct {
	OwnerID     int64
	Title       string
	Description *string
	Payload     string
	Meta        DerivedMetadata
}

// ImagePatch carries the fields a caller may change. Payload, when set, must
// arrive with Meta already derived from it.
type ImagePatch struct {
	Title       *string
	Description *string
	Active      *bool
	Payload     *string
	Meta        *DerivedMetadata
}

func (p ImagePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Active == nil && p.Payload == nil
}

type ImageFilter struct {
	Subtype *string
	Active  *bool
	Search  *string
	Limit   int
}

// HotelImage links an image to a hotel.
type HotelImage struct {
	ID        int64
	HotelID   int64
	ImageID   int64
	Order     int
	IsPrimary bool
	CreatedAt time.Time
}

// HotelImageWithImage is a HotelImage joined with its image.
type HotelImageWithImage struct {
	HotelImage
	Image Image
}
