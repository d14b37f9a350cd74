package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"hrportal/portal-client/internal/clock"
	"hrportal/portal-client/internal/export"
	"hrportal/portal-client/internal/feed"
	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/portalapi"
	"hrportal/portal-client/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	sessions SessionState
	screens  ScreenRegistry
	validate *validator.Validate
}

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

type loginResponse struct {
	SessionID  string `json:"session_id"`
	EmployeeID string `json:"employee_id"`
	ExpiresAt  string `json:"expires_at"`
}

type positionPayload struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// clockRequest carries what the device reported: a position, a geolocation
// error code, or neither when geolocation is not available.
type clockRequest struct {
	RequestID     string           `json:"request_id" validate:"omitempty,uuid"`
	Position      *positionPayload `json:"position"`
	LocationError string           `json:"location_error" validate:"omitempty,oneof=PERMISSION_DENIED POSITION_UNAVAILABLE TIMEOUT UNSUPPORTED"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(sessions SessionState, screens ScreenRegistry) *Handler {
	return &Handler{sessions: sessions, screens: screens, validate: validator.New()}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/portal/session", h.handleSession)
	mux.HandleFunc("/api/portal/status", h.handleStatus)
	mux.HandleFunc("/api/portal/clock", h.handleClock)
	mux.HandleFunc("/api/portal/dashboard", h.handleDashboard)
	mux.HandleFunc("/api/portal/attendance", h.handleAttendance)
	mux.HandleFunc("/api/portal/attendance/export", h.handleAttendanceExport)
	mux.HandleFunc("/api/portal/holidays", h.handleHolidays)
	mux.HandleFunc("/api/portal/feed", h.handleFeed)
	mux.HandleFunc("/api/portal/feed/", h.handleFeedActions)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleLogin(w, r)
	case http.MethodDelete:
		h.handleLogout(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	current, err := h.sessions.Login(r.Context(), req.Token)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if _, err := h.screens.Mount(r.Context(), current); err != nil {
		_ = h.sessions.Logout(r.Context(), current.SessionID)
		writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		SessionID:  current.SessionID,
		EmployeeID: current.EmployeeID,
		ExpiresAt:  current.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	info, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.screens.Unmount(r.Context(), info.Session.SessionID); err != nil {
		log.Printf("screen unmount error session_id=%s: %v", info.Session.SessionID, err)
	}
	if err := h.sessions.Logout(r.Context(), info.Session.SessionID); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, info.Screen.Status())
}

func (h *Handler) handleClock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}

	var req clockRequest
	if r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.LocationError = strings.ToUpper(strings.TrimSpace(req.LocationError))
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	locator := geo.Reported{ErrorCode: req.LocationError}
	if req.Position != nil && req.LocationError == "" {
		locator.Position = &geo.Position{Latitude: req.Position.Latitude, Longitude: req.Position.Longitude}
	}

	clockActions.Add(1)
	snap, err := info.Screen.Clock(r.Context(), req.RequestID, locator)
	if err != nil {
		if errors.Is(err, clock.ErrSubmitFailed) {
			clockFailures.Add(1)
		}
		log.Printf("clock action rejected request_id=%s employee=%s: %v", req.RequestID, info.Session.EmployeeID, err)
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	dashboard, err := info.Screen.Dashboard(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	rows, err := info.Screen.AttendanceLog(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleAttendanceExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	rows, err := info.Screen.AttendanceLog(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.AttendanceWorkbook(&buf, rows); err != nil {
		log.Printf("attendance export error employee=%s: %v", info.Session.EmployeeID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendance-"+info.Session.EmployeeID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	holidays, err := info.Screen.Holidays(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	posts, err := info.Screen.Feed(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleFeedActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portal/feed/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "like" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireScreen(w, r)
	if !ok {
		return
	}
	result, err := info.Screen.ToggleLike(r.Context(), parts[0])
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func requireScreen(w http.ResponseWriter, r *http.Request) (authInfo, bool) {
	info, ok := authFromContext(r.Context())
	if !ok || info.Screen == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return authInfo{}, false
	}
	return info, true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

func mapError(err error) (int, string, string) {
	var apiErr *portalapi.APIError
	switch {
	case errors.Is(err, clock.ErrBusy):
		return http.StatusConflict, "clock_busy", "a clock action is already in progress"
	case errors.Is(err, clock.ErrClockDisabled):
		return http.StatusConflict, "clock_disabled", "clocking is disabled"
	case errors.Is(err, clock.ErrStatusNotLoaded):
		return http.StatusConflict, "status_loading", "attendance status is still loading"
	case errors.Is(err, clock.ErrSubmitFailed):
		return http.StatusBadGateway, "clock_failed", "clock action failed, please try again"
	case errors.Is(err, clock.ErrClosed):
		return http.StatusConflict, "screen_closed", "session was closed"
	case errors.Is(err, feed.ErrPostNotFound):
		return http.StatusNotFound, "post_not_found", "post not found"
	case errors.Is(err, feed.ErrPending):
		return http.StatusConflict, "like_pending", "like update already in progress"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_token", "token is not a valid HR API token"
	case errors.Is(err, session.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case portalapi.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized", "token rejected by HR API"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error", apiErr.Message
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeError(w, status, code, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
