package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"hotel_media/internal/app"
	"hotel_media/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 200
)

type createImageRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	ImageBase64 string  `json:"image_base64" validate:"required"`
}

type updateImageRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsActive    *bool   `json:"is_active"`
	ImageBase64 *string `json:"image_base64"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type messageResponse struct {
	Message    string           `json:"message"`
	HotelImage *AssociationView `json:"hotel_image,omitempty"`
}

type bulkDeleteResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

func (h *Handlers) createImage(w http.ResponseWriter, r *http.Request) {
	var req createImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	img, err := h.Images.Create(r.Context(), CallerID(r.Context()), req.Title, req.Description, req.ImageBase64)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toImageView(img))
}

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	img, err := h.Images.Update(r.Context(), id, CallerID(r.Context()), app.ImageUpdate{
		Title:       req.Title,
		Description: req.Description,
		Active:      req.IsActive,
		Payload:     req.ImageBase64,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImageView(img))
}

func (h *Handlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Images.Delete(r.Context(), id, CallerID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := h.Images.Get(r.Context(), id, CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImageView(img))
}

// parseFilter reads ?type=&active=&q=&limit=.
func parseFilter(r *http.Request) (domain.ImageFilter, error) {
	q := r.URL.Query()
	f := domain.ImageFilter{Limit: defaultListLimit}
	if t := strings.TrimSpace(q.Get("type")); t != "" {
		f.Subtype = &t
	}
	if a := q.Get("active"); a != "" {
		b, err := strconv.ParseBool(a)
		if err != nil {
			return f, fmt.Errorf("%w: active", errBadParam)
		}
		f.Active = &b
	}
	if s := strings.TrimSpace(q.Get("q")); s != "" {
		f.Search = &s
	}
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxListLimit {
			return f, fmt.Errorf("%w: limit", errBadParam)
		}
		f.Limit = l
	}
	return f, nil
}

func (h *Handlers) listImages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	imgs, err := h.Images.List(r.Context(), CallerID(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImageSummaries(imgs))
}

func (h *Handlers) listMine(w http.ResponseWriter, r *http.Request) {
	imgs, err := h.Queries.ListMine(r.Context(), CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImageSummaries(imgs))
}

func (h *Handlers) setPrimary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hi, err := h.Primary.SetPrimary(r.Context(), hotelID, id, CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := toAssociationView(hi)
	writeJSON(w, http.StatusOK, messageResponse{Message: "image marked as primary", HotelImage: &v})
}

func (h *Handlers) download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Queries.Download(r.Context(), id, CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDownloadView(d))
}

func (h *Handlers) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Queries.BulkDelete(r.Context(), req.IDs, CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{
		Message:      fmt.Sprintf("%d image(s) deleted", n),
		DeletedCount: n,
	})
}
