package app

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

// ImportService pulls a hotel's photos from the content provider and stores
// them through the regular image path.
type ImportService struct {
	src       domain.PhotoSource
	hotels    domain.HotelRepository
	links     domain.HotelImageRepository
	images    *ImageService
	assoc     *AssociationService
	ownerID   int64
	maxPhotos int
}

func NewImportService(src domain.PhotoSource, s domain.Store, images *ImageService, assoc *AssociationService, ownerID int64, maxPhotos int) *ImportService {
	if maxPhotos <= 0 {
		maxPhotos = 10
	}
	return &ImportService{src: src, hotels: s, links: s, images: images, assoc: assoc, ownerID: ownerID, maxPhotos: maxPhotos}
}

// ImportResult counts what one ImportHotel call did.
type ImportResult struct {
	Stored  int
	Skipped int
}

func (s *ImportService) ImportHotel(ctx context.Context, id int64) (ImportResult, error) {
	var res ImportResult

	// 1) Property first; known misses are recorded and end the hotel quietly.
	p, err := s.src.GetProperty(ctx, id)
	if err != nil {
		if status, ok := missStatus(err); ok {
			_ = s.hotels.LogMiss(ctx, id, status, "property")
			return res, nil
		}
		return res, err
	}

	h := mapProperty(p)
	h.ID = id
	if err := s.hotels.UpsertHotel(ctx, h); err != nil {
		return res, fmt.Errorf("upsert hotel %d: %w", id, err)
	}

	// 2) Re-runs never duplicate photos: a hotel with links is left alone.
	n, err := s.links.CountByHotel(ctx, id)
	if err != nil {
		return res, err
	}
	if n > 0 {
		log.Info().Int64("id", id).Int("links", n).Msg("hotel already has images; skipping photos")
		return res, nil
	}

	// 3) Photos, in provider order. The first one stored becomes primary.
	urls := photoURLs(p)
	if len(urls) > s.maxPhotos {
		urls = urls[:s.maxPhotos]
	}
	for i, u := range urls {
		if err := s.importPhoto(ctx, id, h.Name, i, u, res.Stored == 0); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Skipped++
			if status, ok := missStatus(err); ok {
				_ = s.hotels.LogMiss(ctx, id, status, "photo:"+u)
			}
			log.Warn().Int64("id", id).Str("url", u).Err(err).Msg("photo skipped")
			continue
		}
		res.Stored++
	}
	return res, nil
}

func (s *ImportService) importPhoto(ctx context.Context, hotelID int64, hotelName string, pos int, url string, primary bool) error {
	ph, err := s.src.GetPhoto(ctx, url)
	if err != nil {
		return err
	}
	payload := datauri.Encode(photoMediaType(ph), ph.Data)

	title := fmt.Sprintf("%s #%d", strings.TrimSpace(hotelName), pos+1)
	if strings.TrimSpace(hotelName) == "" {
		title = fmt.Sprintf("hotel %d #%d", hotelID, pos+1)
	}
	img, err := s.images.Create(ctx, s.ownerID, title, nil, payload)
	if err != nil {
		return err
	}
	if _, err := s.assoc.Attach(ctx, hotelID, img.ID, pos, primary); err != nil {
		if isDuplicate(err) {
			return nil
		}
		// don't leave an orphan image behind
		_ = s.images.Delete(ctx, img.ID, s.ownerID)
		return err
	}
	return nil
}

// missStatus maps provider errors that should be recorded instead of failing the run.
func missStatus(err error) (int, bool) {
	low := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, domain.ErrNotFound) || strings.Contains(low, "not found"):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrForbidden) ||
		strings.Contains(low, "403") || strings.Contains(low, "forbidden") ||
		strings.Contains(low, "401") || strings.Contains(low, "unauthorized"):
		return http.StatusForbidden, true
	}
	return 0, false
}

func photoMediaType(ph domain.Photo) string {
	if mt, _, err := mime.ParseMediaType(ph.ContentType); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(ph.Data))
	return mt
}
