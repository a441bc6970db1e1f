package httpserver

import (
	"net/http"

	"hotel_media/internal/app"
)

type attachRequest struct {
	HotelID   int64 `json:"hotel_id"`
	ImageID   int64 `json:"image_id"`
	Order     int   `json:"order" validate:"gte=0"`
	IsPrimary bool  `json:"is_primary"`
}

type hotelRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	ImageBase64 *string `json:"image_base64"`
}

func (h *Handlers) attach(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	hi, err := h.Assoc.Attach(r.Context(), req.HotelID, req.ImageID, req.Order, req.IsPrimary)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssociationView(hi))
}

func (h *Handlers) detach(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Assoc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listByHotel(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.Queries.ByHotel(r.Context(), hotelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, toJoinedViews(rows))
}

func (h *Handlers) primaryByHotel(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := h.Queries.PrimaryByHotel(r.Context(), hotelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJoinedView(row))
}

func (h *Handlers) putHotel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req hotelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	hotel, err := h.Hotels.Upsert(r.Context(), id, app.HotelInput{Name: req.Name, City: req.City, Payload: req.ImageBase64})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHotelView(hotel))
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hotel, err := h.Hotels.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, toHotelView(hotel))
}
