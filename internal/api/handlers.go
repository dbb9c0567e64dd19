// Package api exposes the load engine over a read-only JSON HTTP API.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"trainload/internal/service"
	"trainload/internal/store"
)

// LoadQueries is the read side of the load engine
type LoadQueries interface {
	Timeline(windowDays int) ([]service.TimelinePoint, error)
	History(from, to time.Time) ([]service.TimelinePoint, error)
	Current() (*service.CurrentState, error)
	Activities(limit, offset int) (*service.ActivityPage, error)
	ActivityDetail(id int64) (*service.ActivityDetail, error)
}

// Handler serves load, readiness and activity queries
type Handler struct {
	loads      LoadQueries
	windowDays int
}

// NewHandler builds a Handler. windowDays is the default for /v1/load.
func NewHandler(loads LoadQueries, windowDays int) *Handler {
	if windowDays <= 0 {
		windowDays = service.DefaultWindowDays
	}
	return &Handler{loads: loads, windowDays: windowDays}
}

// Routes returns the API mux including /healthz and /metrics
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/load", h.load)
	mux.HandleFunc("GET /v1/load/history", h.history)
	mux.HandleFunc("GET /v1/readiness", h.readiness)
	mux.HandleFunc("GET /v1/activities", h.activities)
	mux.HandleFunc("GET /v1/activities/{id}", h.activity)
	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return logRequests(mux)
}

type loadResponse struct {
	Days   int                     `json:"days"`
	Points []service.TimelinePoint `json:"points"`
}

// newLoadResponse keeps an empty history serialising as [] rather than null
func newLoadResponse(days int, points []service.TimelinePoint) loadResponse {
	if points == nil {
		points = []service.TimelinePoint{}
	}
	return newLoadResponse(days, points)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", h.windowDays)
	if !ok {
		return
	}

	points, err := h.loads.Timeline(days)
	if errors.Is(err, service.ErrInvalidWindow) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newLoadResponse(days, points))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "invalid_request", "to must not be before from")
		return
	}

	points, err := h.loads.History(from, to)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLoadResponse(len(points), points))
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	state, err := h.loads.Current()
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", service.DefaultActivitiesLimit)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	if limit <= 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be positive and offset non-negative")
		return
	}

	page, err := h.loads.Activities(limit, offset)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "activity id must be an integer")
		return
	}

	detail, err := h.loads.ActivityDetail(id)
	if errors.Is(err, store.ErrActivityNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// intParam reads an optional integer query parameter, writing a 400 on bad input
func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" must be an integer")
		return 0, false
	}
	return v, true
}

// dateParam reads a required YYYY-MM-DD query parameter
func dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" is required")
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return d, true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	logrus.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
