package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_media/internal/adapters/observability"
	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

// ImageService owns the lifecycle of standalone images. Every method is
// scoped to the caller: another user's image behaves as if it did not exist.
type ImageService struct {
	images domain.ImageRepository
	links  domain.HotelImageRepository
	cache  domain.Cache
}

func NewImageService(s domain.Store, c domain.Cache) *ImageService {
	return &ImageService{images: s, links: s, cache: c}
}

// ImageUpdate lists the caller-settable fields; nil means unchanged.
type ImageUpdate struct {
	Title       *string
	Description *string
	Active      *bool
	Payload     *string
}

// derive validates a payload and computes the metadata stored next to it.
func derive(raw string) (domain.DerivedMetadata, error) {
	m, err := datauri.Extract(raw)
	if err != nil {
		var ve *datauri.ValidationError
		if errors.As(err, &ve) {
			observability.ObserveValidationFailure(string(ve.Kind))
			log.Debug().Str("kind", string(ve.Kind)).Str("detail", ve.Detail).Msg("payload rejected")
		}
		return domain.DerivedMetadata{}, err
	}
	return domain.DerivedMetadata{Subtype: m.Subtype, Size: m.ByteSize, Width: m.Width, Height: m.Height}, nil
}

func (s *ImageService) Create(ctx context.Context, ownerID int64, title string, description *string, payload string) (domain.Image, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Image{}, fmt.Errorf("%w: title", domain.ErrRequiredParameter)
	}
	meta, err := derive(payload)
	if err != nil {
		return domain.Image{}, err
	}
	img, err := s.images.CreateImage(ctx, domain.NewImage{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Payload:     payload,
		Meta:        meta,
	})
	if err != nil {
		return domain.Image{}, err
	}
	observability.ObserveIngest(img.Subtype, img.Size)
	return img, nil
}

func (s *ImageService) Update(ctx context.Context, id, callerID int64, u ImageUpdate) (domain.Image, error) {
	p := domain.ImagePatch{Title: u.Title, Description: u.Description, Active: u.Active}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return domain.Image{}, fmt.Errorf("%w: title", domain.ErrRequiredParameter)
		}
		p.Title = &t
	}
	if u.Payload != nil {
		meta, err := derive(*u.Payload)
		if err != nil {
			return domain.Image{}, err
		}
		p.Payload, p.Meta = u.Payload, &meta
	}
	if p.Empty() {
		return s.images.GetImage(ctx, id, callerID)
	}

	img, err := s.images.UpdateImage(ctx, id, callerID, p)
	if err != nil {
		return domain.Image{}, err
	}
	if p.Payload != nil {
		observability.ObserveIngest(img.Subtype, img.Size)
	}
	s.evictLinkedHotels(ctx, id)
	return img, nil
}

func (s *ImageService) Delete(ctx context.Context, id, callerID int64) error {
	hotels, err := s.images.DeleteImage(ctx, id, callerID)
	if err != nil {
		return err
	}
	evictHotelImages(ctx, s.cache, hotels...)
	return nil
}

func (s *ImageService) Get(ctx context.Context, id, callerID int64) (domain.Image, error) {
	return s.images.GetImage(ctx, id, callerID)
}

func (s *ImageService) List(ctx context.Context, callerID int64, f domain.ImageFilter) ([]domain.Image, error) {
	return s.images.ListImages(ctx, callerID, f)
}

// evictLinkedHotels drops cached hotel listings that embed image id.
func (s *ImageService) evictLinkedHotels(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	hotels, err := s.links.HotelIDsForImage(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("image_id", id).Msg("lookup of linked hotels failed; cache may be stale until TTL")
		return
	}
	evictHotelImages(ctx, s.cache, hotels...)
}
