package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/middleware"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
	"github.com/fakhrymubarak/skyglow-weather/internal/notify"
	"github.com/fakhrymubarak/skyglow-weather/internal/service"
	"github.com/fakhrymubarak/skyglow-weather/internal/suggestion"
)

var validate = validator.New()

// SuggestionController is the subset of suggestion.Controller the handler drives.
type SuggestionController interface {
	Input(query string)
	Dismiss()
	Select(index int) (model.CitySuggestion, error)
	Snapshot() suggestion.Snapshot
}

// NotificationSource hands out pending toasts.
type NotificationSource interface {
	Drain() []notify.Notification
}

type DashboardHandler struct {
	Dashboard     service.DashboardServiceInterface
	Suggestions   SuggestionController
	Notifications NotificationSource
}

func NewDashboardHandler(dashboard service.DashboardServiceInterface, suggestions SuggestionController, notifications NotificationSource) *DashboardHandler {
	return &DashboardHandler{
		Dashboard:     dashboard,
		Suggestions:   suggestions,
		Notifications: notifications,
	}
}

// Routes registers every endpoint on a new mux. Endpoints that trigger a weather
// lookup go through the rate limiter. Keystrokes never do: a dropped keystroke
// would leave the suggestion query behind what was typed, and suggestion lookups
// are throttled after the debounce instead.
func (h *DashboardHandler) Routes() *http.ServeMux {
	limited := func(f http.HandlerFunc) http.Handler {
		return middleware.RateLimitMiddleware(f)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/weather", h.HandleDashboard)
	mux.Handle("/weather/search", limited(h.HandleSearch))
	mux.Handle("/weather/coordinates", limited(h.HandleCoordinates))
	mux.HandleFunc("/suggestions/input", h.HandleSuggestionInput)
	mux.HandleFunc("/suggestions", h.HandleSuggestions)
	mux.HandleFunc("/suggestions/dismiss", h.HandleSuggestionDismiss)
	mux.HandleFunc("/suggestions/select", h.HandleSuggestionSelect)
	mux.HandleFunc("/recent", h.HandleRecent)
	mux.Handle("/recent/replay", limited(h.HandleRecentReplay))
	mux.HandleFunc("/notifications", h.HandleNotifications)
	return mux
}

func (h *DashboardHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, statusCode int, errMsg string) {
	h.writeJSONResponse(w, statusCode, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
}

func (h *DashboardHandler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    data,
		Message: "Success",
	})
}

// allowMethod rejects requests whose method is not method.
func (h *DashboardHandler) allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// writeLookupResult answers a weather lookup with the dashboard as it stands afterwards.
func (h *DashboardHandler) writeLookupResult(ctx context.Context, w http.ResponseWriter, err error, failure string) {
	switch {
	case err == nil:
		h.writeSuccess(w, h.Dashboard.Snapshot(ctx))
	case errors.Is(err, service.ErrSuperseded):
		h.writeJSONResponse(w, http.StatusOK, model.Response{
			Data:    h.Dashboard.Snapshot(ctx),
			Message: "Superseded",
		})
	default:
		h.writeError(w, http.StatusInternalServerError, failure)
	}
}

// HandleDashboard returns the render model.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeSuccess(w, h.Dashboard.Snapshot(r.Context()))
}

// HandleSearch runs a manual city search. A blank location leaves the dashboard as is.
func (h *DashboardHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query()
	if !query.Has("location") {
		h.writeError(w, http.StatusBadRequest, "Missing 'location' query parameter")
		return
	}

	h.Suggestions.Dismiss()
	err := h.Dashboard.Search(r.Context(), query.Get("location"))
	h.writeLookupResult(r.Context(), w, err, "Failed to fetch weather data for this location")
}

type coordinatesQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// HandleCoordinates looks the weather up at a position reported by the renderer.
func (h *DashboardHandler) HandleCoordinates(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query()
	lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(query.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		h.writeError(w, http.StatusBadRequest, "Missing or invalid 'lat'/'lon' query parameters")
		return
	}
	q := coordinatesQuery{Lat: lat, Lon: lon}
	if err := validate.Struct(q); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.Dashboard.FetchByCoordinates(r.Context(), q.Lat, q.Lon)
	h.writeLookupResult(r.Context(), w, err, "Failed to fetch weather data")
}

// HandleSuggestionInput feeds one keystroke's worth of query text to the suggestion controller.
func (h *DashboardHandler) HandleSuggestionInput(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodPost) {
		return
	}
	h.Suggestions.Input(r.URL.Query().Get("q"))
	h.writeSuccess(w, h.Suggestions.Snapshot())
}

func (h *DashboardHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeSuccess(w, h.Suggestions.Snapshot())
}

func (h *DashboardHandler) HandleSuggestionDismiss(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodPost) {
		return
	}
	h.Suggestions.Dismiss()
	h.writeSuccess(w, h.Suggestions.Snapshot())
}

type selectQuery struct {
	Index int `validate:"gte=0"`
}

// HandleSuggestionSelect picks a visible suggestion and looks it up by its coordinates.
func (h *DashboardHandler) HandleSuggestionSelect(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodPost) {
		return
	}
	index, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("index")))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Missing or invalid 'index' query parameter")
		return
	}
	q := selectQuery{Index: index}
	if err := validate.Struct(q); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chosen, err := h.Suggestions.Select(q.Index)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "No suggestion at that position")
		return
	}
	err = h.Dashboard.SelectSuggestion(r.Context(), chosen)
	h.writeLookupResult(r.Context(), w, err, "Failed to fetch weather data")
}

func (h *DashboardHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeSuccess(w, h.Dashboard.RecentSearches(r.Context()))
}

// HandleRecentReplay repeats a search from the recent-searches list.
func (h *DashboardHandler) HandleRecentReplay(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodPost) {
		return
	}
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'location' query parameter")
		return
	}

	err := h.Dashboard.ReplayRecent(r.Context(), location)
	h.writeLookupResult(r.Context(), w, err, "Failed to fetch weather data for this location")
}

// HandleNotifications returns and clears the pending toasts.
func (h *DashboardHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeSuccess(w, h.Notifications.Drain())
}
