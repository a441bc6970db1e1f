package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_media/internal/domain"
)

// AssociationService manages the links between hotels and images.
type AssociationService struct {
	links   domain.HotelImageRepository
	primary *PrimaryCoordinator
	cache   domain.Cache
}

func NewAssociationService(s domain.Store, p *PrimaryCoordinator, c domain.Cache) *AssociationService {
	return &AssociationService{links: s, primary: p, cache: c}
}

// Attach links imageID to hotelID. A primary attach inserts and promotes the
// link inside the hotel lock; if the promotion fails the insert is undone.
func (s *AssociationService) Attach(ctx context.Context, hotelID, imageID int64, order int, isPrimary bool) (domain.HotelImage, error) {
	if hotelID <= 0 {
		return domain.HotelImage{}, fmt.Errorf("%w: hotel_id", domain.ErrRequiredParameter)
	}
	if imageID <= 0 {
		return domain.HotelImage{}, fmt.Errorf("%w: image_id", domain.ErrRequiredParameter)
	}

	if !isPrimary {
		hi, err := s.links.AttachImage(ctx, hotelID, imageID, order)
		if err != nil {
			return domain.HotelImage{}, err
		}
		evictHotelImages(ctx, s.cache, hotelID)
		return hi, nil
	}

	var out domain.HotelImage
	err := s.primary.withHotelLock(ctx, hotelID, func() error {
		hi, err := s.links.AttachImage(ctx, hotelID, imageID, order)
		if err != nil {
			return err
		}
		out, err = s.links.SetPrimary(ctx, hotelID, imageID)
		if err != nil {
			if _, derr := s.links.DeleteHotelImage(ctx, hi.ID); derr != nil {
				log.Error().Err(derr).Int64("hotel_image_id", hi.ID).Msg("undo attach failed")
			}
			return err
		}
		return nil
	})
	if err != nil {
		evictHotelImages(ctx, s.cache, hotelID)
		return domain.HotelImage{}, err
	}
	s.primary.swapped(ctx, out)
	return out, nil
}

func (s *AssociationService) Delete(ctx context.Context, id int64) error {
	hi, err := s.links.DeleteHotelImage(ctx, id)
	if err != nil {
		return err
	}
	evictHotelImages(ctx, s.cache, hi.HotelID)
	return nil
}

// isDuplicate reports a repeated (hotel, image) attach.
func isDuplicate(err error) bool { return errors.Is(err, domain.ErrConflict) }
