package domain

import "time"

// Hotel is owned by the hotel catalogue; this service only needs its identity
// and the denormalized single-image convenience field.
type Hotel struct {
	ID        int64
	Name      string
	City      *string
	Image     *InlineImage
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InlineImage mirrors one image directly on the hotel row. It is written
// independently from Image/HotelImage and never synchronized with them.
type InlineImage struct {
	Payload string
	Subtype string
	Size    int64
}
