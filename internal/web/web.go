package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"devdash/internal/auth"
	"devdash/internal/config"
	"devdash/internal/dashboard"
	appLog "devdash/internal/log"
	"devdash/internal/metrics"
	"devdash/internal/render"
	"devdash/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	maxRequestBody  = 64 << 10
)

// Refresher is the part of the refresh runtime the API drives.
type Refresher interface {
	RequestRefresh()
	RefreshNow(trigger string)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Config    *config.Config
	Board     *render.Board
	Settings  store.Store
	Refresher Refresher
	// OAuth is nil when no Google OAuth client is configured.
	OAuth   *auth.OAuthBroker
	Metrics *metrics.Metrics
}

// Server serves the dashboard page, its region fragments and the
// settings API.
type Server struct {
	Deps
	router chi.Router
	page   *template.Template
}

// embeddedStatic contains the page template, script and stylesheet.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(d Deps) (*Server, error) {
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	page, err := template.ParseFS(embeddedStatic, "static/index.html")
	if err != nil {
		return nil, err
	}
	s := &Server{Deps: d, page: page, router: chi.NewRouter()}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler for this server.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.Config.Listen)
		return s.basicAuthMiddleware(s.router)
	}
	return s.router
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	ba := s.Config.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.Config.BasicAuth.Username
	password := s.Config.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="devdash", charset="UTF-8"`)
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

// Serve runs h on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", s.staticFileServer())

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleRegions)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/demo", s.handleDemo)
		r.Get("/settings", s.handleSettings)
		r.Put("/settings/{key}", s.handlePutSetting)
	})

	r.Get("/oauth/google/start", s.handleOAuthStart)
	r.Get("/oauth/google/callback", s.handleOAuthCallback)

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
}

// requestLogger logs each request through the application logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded assets under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// regionDTO is the JSON view of one painted region.
type regionDTO struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Class      string    `json:"class"`
	HTML       string    `json:"html"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type regionsResponse struct {
	Regions []regionDTO `json:"regions"`
	// Ready is true once every region has been painted at least once.
	Ready bool `json:"ready"`
}

// allPainted reports whether every region has been painted at least once.
func allPainted(views []render.View) bool {
	for _, v := range views {
		if v.Generation == 0 {
			return false
		}
	}
	return true
}

func (s *Server) regions() regionsResponse {
	views := s.Board.Views()
	resp := regionsResponse{Regions: make([]regionDTO, 0, len(views)), Ready: allPainted(views)}
	for _, v := range views {
		resp.Regions = append(resp.Regions, regionDTO{
			ID:         v.ID,
			Label:      v.Label,
			Class:      v.Class,
			HTML:       string(v.HTML),
			Generation: v.Generation,
			UpdatedAt:  v.UpdatedAt,
		})
	}
	return resp
}

type pageData struct {
	Regions []render.View
	Ready   bool
	Demo    bool
	OAuth   bool
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	views := s.Board.Views()
	data := pageData{
		Regions: views,
		Ready:   allPainted(views),
		Demo:    s.Settings.Bool(store.KeyDemoMode),
		OAuth:   s.OAuth != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		appLog.Error("render index failed", err)
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.regions())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.Refresher.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

type demoRequest struct {
	// Enabled sets the flag; nil toggles it.
	Enabled *bool `json:"enabled"`
}

type demoResponse struct {
	DemoMode bool `json:"demoMode"`
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	var req demoRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	enabled := !s.Settings.Bool(store.KeyDemoMode)
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if err := s.Settings.Set(store.KeyDemoMode, enabled); err != nil {
		appLog.Error("set demo mode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	appLog.Info("demo mode set", "enabled", enabled)
	s.Refresher.RefreshNow(dashboard.TriggerDemo)
	writeJSON(w, http.StatusOK, demoResponse{DemoMode: enabled})
}

// settingDTO never carries the value of a secret.
type settingDTO struct {
	Key    string `json:"key"`
	Set    bool   `json:"set"`
	Secret bool   `json:"secret"`
	Value  any    `json:"value,omitempty"`
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	snap := s.Settings.Snapshot()
	out := make([]settingDTO, 0, len(store.KnownKeys))
	for _, key := range store.KnownKeys {
		dto := settingDTO{Key: key, Secret: store.Secret(key)}
		if store.Boolean(key) {
			dto.Set = true
			dto.Value = snap.Bool(key)
		} else {
			v := snap.String(key)
			dto.Set = v != ""
			if !dto.Secret && v != "" {
				dto.Value = v
			}
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type settingRequest struct {
	Value any `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !slices.Contains(store.KnownKeys, key) {
		writeError(w, http.StatusNotFound, "unknown setting")
		return
	}

	var req settingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var value any
	switch v := req.Value.(type) {
	case nil:
		value = store.Coerce(key, "")
	case bool:
		if !store.Boolean(key) {
			writeError(w, http.StatusBadRequest, "setting takes a string")
			return
		}
		value = v
	case string:
		value = store.Coerce(key, v)
	default:
		writeError(w, http.StatusBadRequest, "value must be a string or boolean")
		return
	}

	if err := s.Settings.Set(key, value); err != nil {
		appLog.Error("set setting failed", err, "key", key)
		writeError(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	appLog.Info("setting updated", "key", key)

	if key == store.KeyDemoMode {
		s.Refresher.RefreshNow(dashboard.TriggerDemo)
	} else {
		s.Refresher.RequestRefresh()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeError(w, http.StatusNotFound, "Google OAuth is not configured")
		return
	}
	http.Redirect(w, r, s.OAuth.ConsentURL(), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeError(w, http.StatusNotFound, "Google OAuth is not configured")
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		appLog.Warn("oauth consent denied", "error", e)
		writeError(w, http.StatusBadRequest, "consent denied: "+e)
		return
	}
	if err := s.OAuth.Exchange(r.Context(), q.Get("state"), q.Get("code")); err != nil {
		appLog.Error("oauth exchange failed", err)
		writeError(w, http.StatusBadRequest, "authorization failed")
		return
	}
	appLog.Info("google authorization stored")
	s.Refresher.RequestRefresh()
	http.Redirect(w, r, "/", http.StatusFound)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
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
