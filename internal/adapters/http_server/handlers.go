package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"hotel_media/internal/app"
	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

type Handlers struct {
	Images  *app.ImageService
	Assoc   *app.AssociationService
	Primary *app.PrimaryCoordinator
	Queries *app.QueryService
	Hotels  *app.HotelService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Caller)
		r.Use(chimw.RequestSize(s.opts.MaxBodyBytes))

		w := r.With(s.writeLimit())

		r.Get("/images", h.listImages)
		r.Get("/images/mine", h.listMine)
		r.Get("/images/{id}", h.getImage)
		r.Get("/images/{id}/download", h.download)
		w.Post("/images", h.createImage)
		w.Post("/images/bulk-delete", h.bulkDelete)
		w.Patch("/images/{id}", h.updateImage)
		w.Delete("/images/{id}", h.deleteImage)
		w.Post("/images/{id}/set-primary", h.setPrimary)

		r.Get("/hotel-images/by-hotel", h.listByHotel)
		r.Get("/hotel-images/primary-by-hotel", h.primaryByHotel)
		w.Post("/hotel-images", h.attach)
		w.Delete("/hotel-images/{id}", h.detach)

		r.Get("/hotels/{id}", h.getHotel)
		w.Put("/hotels/{id}", h.putHotel)
	})
}

func (s *Server) writeLimit() func(http.Handler) http.Handler {
	if s.opts.WritesPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(s.opts.WritesPerMinute, time.Minute)
}

// ---- request decoding ----

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var (
	errBadParam = errors.New("invalid parameter")
	errBadBody  = errors.New("invalid request body")
	errTooLarge = errors.New("request body too large")
)

// decodeJSON reads one JSON object into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errTooLarge
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return validate.Struct(dst)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id", errBadParam)
	}
	return id, nil
}

// queryID reads a required positive id from the query string.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", domain.ErrRequiredParameter, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errBadParam, name)
	}
	return id, nil
}

// ---- responses ----

func writeProblem(w http.ResponseWriter, status int, title, detail, field string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Field: field}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// paramName pulls the name appended to a wrapped sentinel ("...: hotel_id").
func paramName(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return ""
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *datauri.ValidationError
	var fe validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, string(ve.Kind), ve.Detail, ve.Field)
	case errors.As(err, &fe) && len(fe) > 0:
		writeProblem(w, http.StatusBadRequest, "Validation Failed",
			fmt.Sprintf("%s failed on %q", fe[0].Field(), fe[0].Tag()), fe[0].Field())
	case errors.Is(err, domain.ErrRequiredParameter):
		name := paramName(err)
		writeProblem(w, http.StatusBadRequest, "Missing Parameter", name+" is required", name)
	case errors.Is(err, errBadParam):
		name := paramName(err)
		writeProblem(w, http.StatusBadRequest, "Invalid Parameter", name+" must be a positive integer", name)
	case errors.Is(err, errBadBody):
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error(), "")
	case errors.Is(err, errTooLarge):
		writeProblem(w, http.StatusRequestEntityTooLarge, "Request Too Large", err.Error(), "")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found", "")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "image is already attached to this hotel", "")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "request did not complete in time", "")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", chimw.GetReqID(r.Context())).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers with 304 when the client already has this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}
