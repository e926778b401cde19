package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"festgrid/internal/app"
	"festgrid/internal/config"
	"festgrid/internal/dataset"
	"festgrid/internal/hub"
	"festgrid/internal/ics"
	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/schedule"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxImportBytes bounds uploaded schedule files.
const maxImportBytes = 4 << 20

// Server provides the schedule API, the grid page and the live feed.
type Server struct {
	app  *app.App
	cfg  *config.Config
	hub  *hub.Hub
	now  func() time.Time
	mux  *http.ServeMux
	page *template.Template
}

// NewServer wires routes. A nil now uses time.Now; a nil hub disables /ws.
func NewServer(a *app.App, h *hub.Hub, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		app:  a,
		cfg:  a.Config(),
		hub:  h,
		now:  now,
		mux:  http.NewServeMux(),
		page: template.Must(template.New("grid.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/grid.html")),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth rather than lock everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !passwordMatches(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// passwordMatches accepts either the plain configured password or, when the
// configured value is a bcrypt hash, a password matching it.
func passwordMatches(given, configured string) bool {
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return secureCompare(given, configured)
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/stages", s.handleStages)
	s.mux.HandleFunc("GET /api/event-types", s.handleEventTypes)
	s.mux.HandleFunc("GET /api/slots", s.handleSlots)
	s.mux.HandleFunc("GET /api/grid", s.handleGrid)
	s.mux.HandleFunc("GET /api/groups", s.handleGroups)
	s.mux.HandleFunc("GET /api/now", s.handleNow)

	s.mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	s.mux.HandleFunc("POST /api/favorites/{id}/toggle", s.handleToggleFavorite)
	s.mux.HandleFunc("GET /api/favorites.ics", s.handleFavoritesICS)

	s.mux.HandleFunc("POST /api/performances", s.handleImport)
	s.mux.HandleFunc("DELETE /api/performances", s.handleResetPerformances)

	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /export.png", s.handleExportPNG)

	s.mux.HandleFunc("GET /grid", s.handleGridPage)
	if s.hub != nil {
		s.mux.Handle("GET /ws", hub.Handler(s.hub))
	}
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/grid", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dataset().Days)
}

func (s *Server) handleStages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dataset().Stages)
}

func (s *Server) handleEventTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dataset().EventTypes)
}

// selectedDate reads ?date=, defaulting to the first festival day.
func (s *Server) selectedDate(r *http.Request) (string, bool) {
	ds := s.app.Dataset()
	date := r.URL.Query().Get("date")
	if date == "" && len(ds.Days) > 0 {
		return ds.Days[0].Date, true
	}
	return date, ds.HasDay(date)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := s.selectedDate(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown festival day")
		return
	}
	seq, err := s.app.Slots(date)
	if err != nil {
		appLog.Error("api slots: generate failed", err, "date", date)
		writeError(w, http.StatusInternalServerError, "failed to generate slots")
		return
	}
	writeJSON(w, http.StatusOK, seq.Slots())
}

// parseFilter reads favorites=1, stages=a,b, types=x,y and q=.
func parseFilter(r *http.Request) schedule.Filter {
	q := r.URL.Query()
	return schedule.Filter{
		Stages:        parseSet(q.Get("stages")),
		EventTypes:    parseSet(q.Get("types")),
		FavoritesOnly: parseBool(q.Get("favorites")),
		Query:         q.Get("q"),
	}
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	date, ok := s.selectedDate(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown festival day")
		return
	}
	g, err := s.app.Grid(date, parseBool(r.URL.Query().Get("mobile")), parseFilter(r))
	if err != nil {
		appLog.Error("api grid: layout failed", err, "date", date)
		writeError(w, http.StatusInternalServerError, "failed to lay out grid")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	date, ok := s.selectedDate(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown festival day")
		return
	}
	perfs := parseFilter(r).Apply(schedule.ForDate(s.app.Performances(), date), s.app.Favorites())
	writeJSON(w, http.StatusOK, schedule.GroupByStart(perfs))
}

type nowResponse struct {
	Top  *float64 `json:"top"`
	Now  string   `json:"now"`
	Date string   `json:"date"`
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	date, ok := s.selectedDate(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown festival day")
		return
	}
	q := r.URL.Query()
	zoom := parseFloatDefault(q.Get("zoom"), 1)
	now := s.now().In(s.app.Location())

	top, shown, err := s.app.NowTop(now, date, zoom, parseBool(q.Get("mobile")))
	if err != nil {
		appLog.Error("api now: locate failed", err, "date", date)
		writeError(w, http.StatusInternalServerError, "failed to locate now")
		return
	}
	resp := nowResponse{Now: now.Format(time.RFC3339), Date: date}
	if shown {
		resp.Top = &top
	}
	writeJSON(w, http.StatusOK, resp)
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

func (s *Server) handleFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: s.app.Favorites().IDs()})
}

type toggleResponse struct {
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	on, err := s.app.ToggleFavorite(id)
	if errors.Is(err, app.ErrUnknownPerformance) {
		writeError(w, http.StatusNotFound, "unknown performance")
		return
	}
	if err != nil {
		appLog.Error("api favorites: toggle failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(hub.FavoritesUpdated(s.app.Favorites().IDs()))
	}
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Favorite: on})
}

func (s *Server) handleFavoritesICS(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	body := s.app.FavoritesICS(date, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ics.Filename(date)+`"`)
	_, _ = w.Write(body)
}

type importResponse struct {
	Imported int `json:"imported"`
}

// handleImport accepts a JSON performance array or an iCalendar file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var perfs []model.Performance
	if (ics.Result{Body: body}).Format() == ics.FormatICS {
		perfs, err = ics.Parse(body, s.app.Dataset().Stages, s.app.Location())
	} else {
		perfs, err = dataset.Decode(body)
	}
	if err == nil {
		err = s.app.ImportPerformances(perfs)
	}
	if err != nil {
		appLog.Warn("api import rejected", "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(hub.Message{Type: hub.TypePerformancesUpdated})
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: len(perfs)})
}

func (s *Server) handleResetPerformances(w http.ResponseWriter, _ *http.Request) {
	if err := s.app.ResetPerformances(); err != nil {
		appLog.Error("api performances: reset failed", err)
		writeError(w, http.StatusInternalServerError, "failed to reset performances")
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(hub.Message{Type: hub.TypePerformancesUpdated})
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportParams reads date, theme and all=1 (every day, compact layout).
func (s *Server) exportParams(r *http.Request) (string, model.Theme, bool) {
	q := r.URL.Query()
	date, _ := s.selectedDate(r)
	return date, model.ParseTheme(q.Get("theme")), parseBool(q.Get("all"))
}

// exportStatus maps export errors onto HTTP statuses.
func exportStatus(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrNothingToExport):
		return http.StatusNotFound, "no favorites to export"
	case errors.Is(err, app.ErrUnknownDate):
		return http.StatusBadRequest, "unknown festival day"
	default:
		return http.StatusInternalServerError, "failed to generate image"
	}
}

type exportResponse struct {
	DataURL string `json:"data_url"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	date, theme, all := s.exportParams(r)
	url, err := s.app.ExportDataURL(date, theme, all)
	if err != nil {
		status, msg := exportStatus(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{DataURL: url})
}

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	date, theme, all := s.exportParams(r)
	data, err := s.app.ExportPNG(date, theme, all)
	if err != nil {
		status, msg := exportStatus(err)
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

// parseSet splits "a,b" into a set; empty means no restriction (nil).
func parseSet(s string) map[string]bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out[part] = true
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
