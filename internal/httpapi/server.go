package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vmihailenco/msgpack/v5"

	"galaxy/internal/camera"
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/physics"
	"galaxy/internal/picker"
	"galaxy/internal/sector"
	"galaxy/internal/util"
	"galaxy/internal/watchlist"
)

const retryPath = "/api/reload"

// Options configures a Server.
type Options struct {
	AllowedOrigins  []string
	ReloadPerMinute int
}

// Server serves the galaxy HTTP API.
type Server struct {
	model   *dashboard.Model
	watch   watchlist.List
	reload  *util.RateLimiter
	origins []string
	log     *slog.Logger
}

// NewServer creates a Server. watch may be nil, in which case an in-memory
// watchlist is used.
func NewServer(model *dashboard.Model, watch watchlist.List, opts Options, log *slog.Logger) *Server {
	if watch == nil {
		watch = watchlist.NewMemory()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	perMin := opts.ReloadPerMinute
	if perMin <= 0 {
		perMin = 6
	}
	return &Server{
		model:   model,
		watch:   watch,
		reload:  util.NewBurstLimiter(perMin, 2),
		origins: opts.AllowedOrigins,
		log:     log,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	timeout := middleware.Timeout(30 * time.Second)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Get("/status", s.handleStatus)
			r.Post("/reload", s.handleReload)

			r.Get("/sectors", s.handleSectors)
			r.Get("/dates", s.handleDates)
			r.Get("/tickers", s.handleSearch)
			r.Get("/tickers/{ticker}", s.handleTicker)

			r.Get("/watchlist", s.handleGetWatchlist)
			r.Put("/watchlist/{symbol}", s.handleAddWatchlist)
			r.Delete("/watchlist/{symbol}", s.handleRemoveWatchlist)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireTimeline)
			r.With(timeout).Get("/frame", s.handleFrame)
			r.With(timeout).Get("/camera", s.handleCamera)
			r.With(timeout).Get("/trails", s.handleTrails)
			r.With(timeout).Post("/sessions", s.handleCreateSession)

			r.Route("/sessions/{id}", func(r chi.Router) {
				// Long-lived, so outside the request timeout.
				r.Get("/stream", s.handleStream)

				r.Group(func(r chi.Router) {
					r.Use(timeout)
					r.Get("/", s.withSession(s.handleGetSession))
					r.Delete("/", s.handleDeleteSession)
					r.Get("/frame", s.withSession(s.handleSessionFrame))
					r.Get("/trails", s.withSession(s.handleSessionTrails))
					r.Post("/play", s.withSession(s.handlePlay))
					r.Post("/pause", s.withSession(s.handlePause))
					r.Post("/toggle", s.withSession(s.handleToggle))
					r.Put("/progress", s.withSession(s.handleProgress))
					r.Put("/speed", s.withSession(s.handleSpeed))
					r.Get("/filters", s.withSession(s.handleGetFilters))
					r.Put("/filters", s.withSession(s.handlePutFilters))
					r.Post("/pick", s.withSession(s.handlePick))
				})
			})
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireTimeline rejects frame requests while the last load failed.
func (s *Server) requireTimeline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if snap := s.model.Snapshot(); snap.Status == dashboard.StatusFailed {
			writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{Error: snap.Error, Retry: retryPath})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *dashboard.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.model.Session(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h(w, r, sess)
	}
}

// ---------------------------------------------------------------------------
// Encoding helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, ErrorResponse{Error: msg})
}

// wantsMsgpack reports whether the client asked for msgpack via the format
// query parameter or the Accept header.
func wantsMsgpack(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "msgpack")
	}
	return strings.Contains(r.Header.Get("Accept"), "msgpack")
}

// writeFrame encodes v as msgpack or JSON depending on the request.
func writeFrame(w http.ResponseWriter, r *http.Request, v any) {
	if !wantsMsgpack(r) {
		writeJSON(w, v)
		return
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding msgpack")
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// filtersFromQuery reads stateless filter parameters:
// min_energy, sectors (comma separated), positive, neutral, negative.
func filtersFromQuery(r *http.Request, base domain.FilterSet) domain.FilterSet {
	f := base.Clone()
	f.SetMinEnergyPercent(queryFloat(r, "min_energy", f.MinEnergyPercent))
	if v := r.URL.Query().Get("sectors"); v != "" {
		f.SetSectors(strings.Split(v, ","))
	}
	f.ShowPositive = queryBool(r, "positive", f.ShowPositive)
	f.ShowNeutral = queryBool(r, "neutral", f.ShowNeutral)
	f.ShowNegative = queryBool(r, "negative", f.ShowNegative)
	return f
}

// ---------------------------------------------------------------------------
// Status & reload
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{
		Snapshot:        s.model.Snapshot(),
		DurationSeconds: s.model.Options().DurationSeconds,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.reload.Allow() {
		writeError(w, http.StatusTooManyRequests, "reload rate limited")
		return
	}
	if err := s.model.Load(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Retry: retryPath})
		return
	}
	s.handleStatus(w, r)
}

// ---------------------------------------------------------------------------
// Stateless composition
// ---------------------------------------------------------------------------

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	c := s.model.Composer()
	progress := queryFloat(r, "progress", float64(c.Len()-1))
	f := filtersFromQuery(r, s.model.Options().Filters)
	writeFrame(w, r, c.At(progress, f))
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	vp := camera.Viewport{W: queryFloat(r, "w", 0), H: queryFloat(r, "h", 0)}
	writeJSON(w, s.model.CameraFit(vp))
}

func (s *Server) handleTrails(w http.ResponseWriter, r *http.Request) {
	c := s.model.Composer()
	progress := queryFloat(r, "progress", float64(c.Len()-1))
	lookback := int(queryFloat(r, "lookback", float64(s.model.Options().TrailLookback)))
	writeTrails(w, r, c.Dates(), c.IndexFor(progress), c.Trails(progress, lookback))
}

func writeTrails(w http.ResponseWriter, r *http.Request, dates []string, index int, trails []physics.Trail) {
	resp := TrailsResponse{Trails: trails}
	if index < len(dates) {
		resp.Date = dates[index]
	}
	if resp.Trails == nil {
		resp.Trails = []physics.Trail{}
	}
	writeFrame(w, r, resp)
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	ids := s.model.Composer().Sectors()
	if len(ids) == 0 {
		ids = sector.IDs()
	}
	out := make([]SectorJSON, len(ids))
	for i, id := range ids {
		out[i] = SectorJSON{ID: id, Label: sector.Label(id)}
	}
	writeJSON(w, out)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.model.Composer().Dates())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := int(queryFloat(r, "limit", 20))
	writeJSON(w, watchlist.Search(s.model.Tickers(), r.URL.Query().Get("q"), limit))
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	ticker := watchlist.Normalize(chi.URLParam(r, "ticker"))
	c := s.model.Composer()
	hist := physics.History(c.Timeline(), ticker)
	if len(hist) == 0 {
		writeError(w, http.StatusNotFound, "unknown ticker "+ticker)
		return
	}

	resp := TickerResponse{Ticker: ticker, Sector: sector.Resolve(ticker), History: hist}
	progress := queryFloat(r, "progress", float64(c.Len()-1))
	for _, n := range c.At(progress, domain.DefaultFilters()).Nodes {
		if n.Ticker == ticker {
			resp.Node = &n
			break
		}
	}
	writeJSON(w, resp)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func sessionResponse(sess *dashboard.Session) SessionResponse {
	return SessionResponse{ID: sess.ID, State: sess.State(), Filters: filtersJSON(sess.Filters())}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.model.NewSession()
	writeJSONStatus(w, http.StatusCreated, sessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeJSON(w, sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.model.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionFrame(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeFrame(w, r, sess.Frame())
}

func (s *Server) handleSessionTrails(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	c := s.model.Composer()
	writeTrails(w, r, c.Dates(), c.IndexFor(sess.State().Progress), sess.Trails())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeJSON(w, sess.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeJSON(w, sess.Pause())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeJSON(w, sess.Toggle())
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	var req ProgressRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	writeJSON(w, sess.Scrub(req.Progress))
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	var req SpeedRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Speed <= 0 {
		writeError(w, http.StatusBadRequest, "speed must be positive")
		return
	}
	writeJSON(w, sess.SetSpeed(req.Speed))
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	writeJSON(w, filtersJSON(sess.Filters()))
}

func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	var patch FilterPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	writeJSON(w, filtersJSON(sess.UpdateFilters(patch.apply)))
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	var req PickRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	tr := picker.Transform{
		Zoom:      req.Zoom,
		CenterX:   req.CenterX,
		CenterY:   req.CenterY,
		ViewportW: req.ViewportW,
		ViewportH: req.ViewportH,
	}
	writeJSON(w, sess.Pick(req.X, req.Y, tr, req.Click))
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.watch.Symbols(r.Context())
	if err != nil {
		if errors.Is(err, watchlist.ErrNotReady) {
			writeJSON(w, WatchlistResponse{Symbols: []string{}})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get watchlist")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, WatchlistResponse{Symbols: symbols})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	s.updateWatchlist(w, r, s.watch.Add)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	s.updateWatchlist(w, r, s.watch.Remove)
}

func (s *Server) updateWatchlist(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, symbol string) error) {
	symbol := watchlist.Normalize(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	if err := fn(r.Context(), symbol); err != nil {
		if errors.Is(err, watchlist.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

// handleStream upgrades to a websocket and pushes every frame the session
// publishes. Frames are text JSON, or binary msgpack with ?format=msgpack.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.model.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	binary := wantsMsgpack(r)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Warn("websocket accept", "session", sess.ID, "error", err)
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	// Clients only send control frames; CloseRead cancels ctx when they go.
	ctx := c.CloseRead(r.Context())

	id, frames := sess.Subscribe(16)
	defer sess.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case df, ok := <-frames:
			if !ok {
				c.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := writeMessage(ctx, c, df, binary); err != nil {
				s.log.Debug("websocket write", "session", sess.ID, "error", err)
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, c *websocket.Conn, v any, binary bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if binary {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		return c.Write(ctx, websocket.MessageBinary, data)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}
