package httpserver

import (
	"time"

	"hotel_media/internal/app"
	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

// images above this decoded size are flagged as large
const largeImageBytes = 5 * 1024 * 1024

type ImageView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ImageBase64 string    `json:"image_base64"`
	ImageType   string    `json:"image_type"`
	ImageSize   int64     `json:"image_size"`
	ImageSizeMB float64   `json:"image_size_mb"`
	ImageWidth  *int      `json:"image_width"`
	ImageHeight *int      `json:"image_height"`
	ImageURL    string    `json:"image_url"`
	IsLarge     bool      `json:"is_large"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ImageSummaryView is the list shape.
type ImageSummaryView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ImageBase64 string    `json:"image_base64"`
	ImageType   string    `json:"image_type"`
	ImageSizeMB float64   `json:"image_size_mb"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssociationView carries the joined image when the query loaded it.
type AssociationView struct {
	ID        int64      `json:"id"`
	HotelID   int64      `json:"hotel_id"`
	ImageID   int64      `json:"image_id"`
	Image     *ImageView `json:"image,omitempty"`
	Order     int        `json:"order"`
	IsPrimary bool       `json:"is_primary"`
	CreatedAt time.Time  `json:"created_at"`
}

type DownloadView struct {
	Title       string  `json:"title"`
	ImageBase64 string  `json:"image_base64"`
	ImageType   string  `json:"image_type"`
	ImageSizeMB float64 `json:"image_size_mb"`
}

type HotelView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	City        *string   `json:"city"`
	ImageBase64 *string   `json:"image_base64"`
	ImageType   *string   `json:"image_type"`
	ImageSize   int64     `json:"image_size"`
	ImageSizeMB float64   `json:"image_size_mb"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toImageView(img domain.Image) ImageView {
	return ImageView{
		ID:          img.ID,
		Title:       img.Title,
		Description: img.Description,
		ImageBase64: img.Payload,
		ImageType:   img.Subtype,
		ImageSize:   img.Size,
		ImageSizeMB: datauri.SizeMB(img.Size),
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
		ImageURL:    img.Payload,
		IsLarge:     img.Size > largeImageBytes,
		IsActive:    img.Active,
		CreatedAt:   img.CreatedAt,
		UpdatedAt:   img.UpdatedAt,
	}
}

func toImageSummaries(imgs []domain.Image) []ImageSummaryView {
	out := make([]ImageSummaryView, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, ImageSummaryView{
			ID:          img.ID,
			Title:       img.Title,
			ImageBase64: img.Payload,
			ImageType:   img.Subtype,
			ImageSizeMB: datauri.SizeMB(img.Size),
			IsActive:    img.Active,
			CreatedAt:   img.CreatedAt,
		})
	}
	return out
}

func toAssociationView(hi domain.HotelImage) AssociationView {
	return AssociationView{
		ID:        hi.ID,
		HotelID:   hi.HotelID,
		ImageID:   hi.ImageID,
		Order:     hi.Order,
		IsPrimary: hi.IsPrimary,
		CreatedAt: hi.CreatedAt,
	}
}

func toJoinedView(row domain.HotelImageWithImage) AssociationView {
	v := toAssociationView(row.HotelImage)
	img := toImageView(row.Image)
	v.Image = &img
	return v
}

func toJoinedViews(rows []domain.HotelImageWithImage) []AssociationView {
	out := make([]AssociationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, toJoinedView(r))
	}
	return out
}

func toDownloadView(d app.Download) DownloadView {
	return DownloadView{Title: d.Title, ImageBase64: d.Payload, ImageType: d.Subtype, ImageSizeMB: d.SizeMB}
}

func toHotelView(h domain.Hotel) HotelView {
	v := HotelView{
		ID:        h.ID,
		Name:      h.Name,
		City:      h.City,
		IsActive:  h.Active,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
	if h.Image != nil {
		p, st := h.Image.Payload, h.Image.Subtype
		v.ImageBase64, v.ImageType = &p, &st
		v.ImageSize = h.Image.Size
		v.ImageSizeMB = datauri.SizeMB(h.Image.Size)
	}
	return v
}
