package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error messages returned in the "error" field of failed API responses.
const (
	msgMissingLocation = "Missing required parameters: longitude, latitude"
	msgInvalidLocation = "Invalid parameters: longitude and latitude must be finite numbers"
	msgInvalidRadius   = "Invalid parameter: radius must be a positive finite number"
	msgNotFound        = "Toilet not found"
)

// Handler serves read queries over the collected records.
type Handler struct {
	log     *slog.Logger
	index   *repository.Index
	metrics *metrics.Metrics
}

// NewHandler builds the HTTP routes of the read API, the health check and the metrics endpoint.
func NewHandler(log *slog.Logger, index *repository.Index, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	h := &Handler{log: log, index: index, metrics: m}

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/toilets", h.instrument(withCORS(http.HandlerFunc(h.listNearby))))
	mux.Handle("GET /api/v1/toilets/{id}", h.instrument(withCORS(http.HandlerFunc(h.getByID))))
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func (h *Handler) listNearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rawLon, rawLat := query.Get("longitude"), query.Get("latitude")
	if rawLon == "" || rawLat == "" {
		h.writeError(w, r, http.StatusBadRequest, msgMissingLocation)
		return
	}

	lon, errLon := strconv.ParseFloat(rawLon, 64)
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	if errLon != nil || errLat != nil {
		h.writeError(w, r, http.StatusBadRequest, msgInvalidLocation)
		return
	}

	radius := float64(repository.DefaultRadiusMeters)
	if rawRadius := query.Get("radius"); rawRadius != "" {
		var err error
		if radius, err = strconv.ParseFloat(rawRadius, 64); err != nil {
			h.writeError(w, r, http.StatusBadRequest, msgInvalidRadius)
			return
		}
	}

	center := models.Coordinates{Longitude: lon, Latitude: lat}
	matches, err := h.index.Nearby(center, radius, repository.ParseFilters(query.Get("filters")))
	switch {
	case errors.Is(err, repository.ErrInvalidCenter):
		h.writeError(w, r, http.StatusBadRequest, msgInvalidLocation)
		return
	case errors.Is(err, repository.ErrInvalidRadius):
		h.writeError(w, r, http.StatusBadRequest, msgInvalidRadius)
		return
	case errors.Is(err, repository.ErrUnknownFilter):
		h.writeError(w, r, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "Nearby query failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.log.DebugContext(r.Context(), "Nearby query served", "center", center.String(), "matches", len(matches))
	h.writeJSON(w, r, http.StatusOK, matches)
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	record, err := h.index.ByID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, msgNotFound)
		return
	}

	h.writeJSON(w, r, http.StatusOK, record)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.log.DebugContext(r.Context(), "Performing health checks...")
	status, body := http.StatusOK, "OK"
	if h.index == nil || h.index.Len() == 0 {
		status, body = http.StatusServiceUnavailable, "no data loaded"
	}

	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}
