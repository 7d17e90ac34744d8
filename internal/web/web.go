package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"hospcal/internal/config"
	"hospcal/internal/holiday"
	"hospcal/internal/ics"
	appLog "hospcal/internal/log"
	"hospcal/internal/refresh"
	"hospcal/internal/schedule"
)

const (
	monthCacheTTL = 30 * time.Second
	// monthCacheMax bounds the cache; keys carry client-chosen years and
	// calendar lists.
	monthCacheMax = 64
	maxFeedYears  = 50
)

// Server provides the holiday and schedule HTTP API.
type Server struct {
	cfg       *config.Config
	loc       *time.Location
	refresher *refresh.Refresher
	mux       *http.ServeMux

	// now is swapped in tests.
	now func() time.Time

	// In-memory cache for /api/month responses, dropped on every refresh.
	// monthGen changes on every drop so builds that straddle a refresh are
	// not stored.
	monthMu    sync.RWMutex
	monthCache map[string]monthCacheEntry
	monthGen   uint64
}

type monthCacheEntry struct {
	resp      schedule.Month
	updatedAt time.Time
}

// NewServer constructs a new Server. refresher may be nil, in which case the
// month view carries no events and /api/refresh is unavailable.
func NewServer(cfg *config.Config, refresher *refresh.Refresher) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:        cfg,
		loc:        resolveLocationOrLocal(cfg.Timezone),
		refresher:  refresher,
		mux:        http.NewServeMux(),
		now:        time.Now,
		monthCache: make(map[string]monthCacheEntry),
	}
	if refresher != nil {
		refresher.OnRefresh(func(refresh.Snapshot) { s.invalidateMonthCache() })
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

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hospcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/holiday", s.handleHoliday)
	s.mux.HandleFunc("/api/holidays", s.handleHolidays)
	s.mux.HandleFunc("/api/month", s.handleMonth)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/holidays.ics", s.handleHolidayFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// holidayResponse is the JSON response shape for /api/holiday.
type holidayResponse struct {
	Date                       holiday.Date     `json:"date"`
	Kind                       holiday.Kind     `json:"kind"`
	Weekday                    time.Weekday     `json:"weekday"`
	Name                       string           `json:"name,omitempty"`
	IsWeekend                  bool             `json:"is_weekend"`
	IsHoliday                  bool             `json:"is_holiday"`
	IsHolidayExcludingSaturday bool             `json:"is_holiday_excluding_saturday"`
	IsNationalHoliday          bool             `json:"is_national_holiday"`
	InYearEndBlackout          bool             `json:"in_year_end_blackout"`
	Next                       *holiday.Holiday `json:"next,omitempty"`
}

// handleHoliday classifies one date.
//
// GET /api/holiday?date=2025-05-06 (default: today in the configured zone)
func (s *Server) handleHoliday(w http.ResponseWriter, r *http.Request) {
	d := s.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := holiday.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		d = parsed
	}

	info := holiday.Classify(d)
	resp := holidayResponse{
		Date:                       d,
		Kind:                       info.Kind,
		Weekday:                    info.Weekday,
		Name:                       info.Name,
		IsWeekend:                  holiday.IsWeekend(d),
		IsHoliday:                  holiday.IsHoliday(d),
		IsHolidayExcludingSaturday: holiday.IsHolidayExcludingSaturday(d),
		IsNationalHoliday:          holiday.IsNationalHoliday(d),
		InYearEndBlackout:          holiday.InYearEndBlackout(d),
	}
	if next, ok := holiday.Next(d); ok {
		resp.Next = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

type holidaysResponse struct {
	Year     int               `json:"year"`
	Month    int               `json:"month,omitempty"`
	Holidays []holiday.Holiday `json:"holidays"`
}

// handleHolidays lists the named days of a year or of one month.
//
// GET /api/holidays?year=2025[&month=5]
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, ok := parseYear(q.Get("year"), s.today().Year)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	resp := holidaysResponse{Year: year}
	if raw := q.Get("month"); raw != "" {
		month, ok := parseMonth(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "month must be 1-12")
			return
		}
		resp.Month = int(month)
		resp.Holidays = holiday.InMonth(year, month)
	} else {
		resp.Holidays = holiday.InYear(year)
	}
	if resp.Holidays == nil {
		resp.Holidays = []holiday.Holiday{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMonth returns the month view: every day with its holiday
// classification and the events of the configured calendars.
//
// GET /api/month?year=2025&month=5[&calendars=ward,ops]
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := s.today()

	year, ok := parseYear(q.Get("year"), today.Year)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month := today.Month
	if raw := q.Get("month"); raw != "" {
		if month, ok = parseMonth(raw); !ok {
			writeError(w, http.StatusBadRequest, "month must be 1-12")
			return
		}
	}
	calendars := splitList(q.Get("calendars"))

	key := strconv.Itoa(year) + "-" + strconv.Itoa(int(month)) + "|" + strings.Join(calendars, ",")
	now := s.now()

	s.monthMu.RLock()
	ce, hit := s.monthCache[key]
	gen := s.monthGen
	s.monthMu.RUnlock()
	if hit && now.Sub(ce.updatedAt) < monthCacheTTL {
		writeJSON(w, http.StatusOK, ce.resp)
		return
	}

	var events []ics.ParsedEvent
	if s.refresher != nil {
		events = s.refresher.Snapshot().Events
	}

	m, err := schedule.FromEvents(events, year, month, s.loc, calendars)
	if err != nil {
		appLog.Error("api month: build failed", err, "year", year, "month", int(month))
		writeError(w, http.StatusInternalServerError, "failed to build month")
		return
	}

	s.storeMonth(key, gen, m, now)

	writeJSON(w, http.StatusOK, m)
}

// storeMonth caches m unless the cache was dropped since gen was read.
// Expired entries are pruned first; when still full, the oldest entry goes.
func (s *Server) storeMonth(key string, gen uint64, m schedule.Month, now time.Time) {
	s.monthMu.Lock()
	defer s.monthMu.Unlock()

	if gen != s.monthGen {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range s.monthCache {
		if now.Sub(e.updatedAt) >= monthCacheTTL {
			delete(s.monthCache, k)
			continue
		}
		if oldestKey == "" || e.updatedAt.Before(oldest) {
			oldestKey, oldest = k, e.updatedAt
		}
	}
	if _, exists := s.monthCache[key]; !exists && len(s.monthCache) >= monthCacheMax {
		delete(s.monthCache, oldestKey)
	}

	s.monthCache[key] = monthCacheEntry{resp: m, updatedAt: now}
}

func (s *Server) invalidateMonthCache() {
	s.monthMu.Lock()
	s.monthCache = make(map[string]monthCacheEntry)
	s.monthGen++
	s.monthMu.Unlock()
}

type refreshResponse struct {
	Sources   int               `json:"sources"`
	Events    int               `json:"events"`
	Errors    map[string]string `json:"errors,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// handleRefresh re-fetches every calendar now.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "no calendars configured")
		return
	}

	snap, err := s.refresher.Refresh(r.Context())
	if err != nil {
		appLog.Error("api refresh: all sources failed", err)
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Sources:   snap.Sources,
		Events:    len(snap.Events),
		Errors:    snap.Errors,
		UpdatedAt: snap.UpdatedAt,
	})
}

// handleHolidayFeed exports named days as an ICS calendar.
//
// GET /holidays.ics?from=2025&to=2026 (default: this year and next)
func (s *Server) handleHolidayFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	this := s.today().Year

	from, ok := parseYear(q.Get("from"), this)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, ok := parseYear(q.Get("to"), from+1)
	if !ok || to < from || to-from >= maxFeedYears {
		writeError(w, http.StatusBadRequest, "to must be within 50 years after from")
		return
	}

	feed, err := ics.HolidayFeed(from, to, ics.FeedOptions{Stamp: s.now()})
	if err != nil {
		appLog.Error("holiday feed failed", err, "from", from, "to", to)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

func (s *Server) today() holiday.Date {
	return holiday.DateOf(s.now().In(s.loc))
}

func parseYear(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 9999 {
		return 0, false
	}
	return n, true
}

func parseMonth(raw string) (time.Month, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return time.Month(n), true
}

// splitList parses a comma separated query value into a sorted, de-duplicated list.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	sort.Strings(out)
	return out
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
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
