package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quantfeed/matchbook/pkg/cache"
	"github.com/quantfeed/matchbook/pkg/core"
	"github.com/quantfeed/matchbook/pkg/logging"
	"github.com/quantfeed/matchbook/pkg/otel"
	"github.com/quantfeed/matchbook/pkg/registry"
)

// Config holds the market data server settings.
type Config struct {
	Addr              string
	SnapshotDepth     int
	BroadcastInterval time.Duration
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		SnapshotDepth:     20,
		BroadcastInterval: 500 * time.Millisecond,
	}
}

// Server exposes the engine over HTTP and websocket: snapshot and info
// endpoints for polling clients, and a push feed of book updates and
// trades for connected dashboards.
type Server struct {
	cfg      Config
	registry *registry.InstrumentRegistry
	cache    *cache.SnapshotCache // optional
	hub      *Hub
	metrics  *otel.HTTPServerMetrics // optional
	logger   zerolog.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	cancel   context.CancelFunc

	// last broadcast trade ID per symbol, for new_trades frames
	lastTradeMu sync.Mutex
	lastTradeID map[string]uint64

	wg sync.WaitGroup
}

// NewServer wires the market data surface. The snapshot cache and
// metrics may be nil; both are optional.
func NewServer(cfg Config, reg *registry.InstrumentRegistry, snapCache *cache.SnapshotCache, metrics *otel.HTTPServerMetrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: reg,
		cache:    snapCache,
		metrics:  metrics,
		logger:   logger.With().Str("component", "Server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from arbitrary origins in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		lastTradeID: make(map[string]uint64),
	}
	s.hub = NewHub(logger)

	mux := http.NewServeMux()
	mux.Handle("/api/snapshot", logging.Middleware(http.HandlerFunc(s.handleSnapshot)))
	mux.Handle("/api/info", logging.Middleware(http.HandlerFunc(s.handleInfo)))
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the hub, the broadcast loop and the HTTP listener. The
// loops run on a context Stop cancels, so shutdown does not depend on
// the caller cancelling ctx first.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.broadcastLoop(ctx)
	}()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("Starting market data server")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop cancels the loops, shuts the HTTP listener down and waits for
// everything to exit.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping market data server")
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	s.wg.Wait()
	return nil
}

// broadcastLoop pushes the active book to all clients on a fixed
// interval and refreshes the snapshot cache as a side effect.
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.ClientCount() == 0 && s.cache == nil {
				continue
			}
			s.broadcastOnce(ctx)
		}
	}
}

func (s *Server) broadcastOnce(ctx context.Context) {
	snap := s.registry.ActiveSnapshot(s.cfg.SnapshotDepth)

	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, snap.Symbol, data); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to refresh snapshot cache")
		}
	}

	frame, err := newMessage(TypeUpdate, data)
	if err != nil {
		return
	}
	s.hub.Broadcast(frame)

	s.pushNewTrades(ctx, snap)
}

// pushNewTrades emits a new_trades frame with trades that appeared
// since the previous broadcast for this symbol.
func (s *Server) pushNewTrades(ctx context.Context, snap core.Snapshot) {
	if len(snap.Trades) == 0 {
		return
	}

	s.lastTradeMu.Lock()
	last := s.lastTradeID[snap.Symbol]
	// Trades are newest first.
	fresh := make([]core.Trade, 0, len(snap.Trades))
	for _, t := range snap.Trades {
		if t.ID > last {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) > 0 {
		s.lastTradeID[snap.Symbol] = fresh[0].ID
	}
	s.lastTradeMu.Unlock()

	if len(fresh) == 0 {
		return
	}

	data, err := json.Marshal(fresh)
	if err != nil {
		return
	}

	if frame, err := newMessage(TypeTrades, data); err == nil {
		s.hub.Broadcast(frame)
	}

	if s.cache != nil {
		if err := s.cache.PublishTrades(ctx, snap.Symbol, data); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish trades to cache channel")
		}
	}
}

// snapshotFrame builds a websocket frame holding the active snapshot.
func (s *Server) snapshotFrame(msgType string) ([]byte, error) {
	snap := s.registry.ActiveSnapshot(s.cfg.SnapshotDepth)
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return newMessage(msgType, data)
}

// handleSnapshot serves the active book; ?symbol= selects another
// instrument from the universe.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.metrics != nil {
		_ = s.metrics.IncRequests(r.Context(), "/api/snapshot")
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.registry.Active()
	}

	// Serve from cache when it holds a fresh copy.
	if s.cache != nil {
		if data, ok, err := s.cache.GetSnapshot(r.Context(), symbol); err == nil && ok {
			s.writeJSON(w, r, http.StatusOK, data, start, "/api/snapshot")
			return
		}
	}

	snap, err := s.registry.Snapshot(symbol, s.cfg.SnapshotDepth)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "unknown instrument: "+symbol, start, "/api/snapshot")
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to encode snapshot", start, "/api/snapshot")
		return
	}

	if s.cache != nil {
		_ = s.cache.SetSnapshot(r.Context(), symbol, data)
	}
	s.writeJSON(w, r, http.StatusOK, data, start, "/api/snapshot")
}

// infoResponse describes the engine universe for the dashboard.
type infoResponse struct {
	Active      string           `json:"active"`
	Instruments []instrumentInfo `json:"instruments"`
	Clients     int              `json:"clients"`
}

type instrumentInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Frozen bool   `json:"frozen"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.metrics != nil {
		_ = s.metrics.IncRequests(r.Context(), "/api/info")
	}

	resp := infoResponse{
		Active:  s.registry.Active(),
		Clients: s.hub.ClientCount(),
	}
	for _, symbol := range s.registry.Symbols() {
		inst, err := s.registry.Instrument(symbol)
		if err != nil {
			continue
		}
		book, err := s.registry.Book(symbol)
		if err != nil {
			continue
		}
		resp.Instruments = append(resp.Instruments, instrumentInfo{
			Symbol: inst.Symbol,
			Name:   inst.Name,
			Frozen: book.Frozen(),
		})
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to encode info", start, "/api/info")
		return
	}
	s.writeJSON(w, r, http.StatusOK, data, start, "/api/info")
}

// handleWebsocket upgrades the connection and hands it to the hub.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := newClient(s, conn)
	s.hub.Register(client)

	if s.metrics != nil {
		_ = s.metrics.AddWSConnections(r.Context(), 1)
	}

	// Initial snapshot so the client renders immediately.
	if frame, err := s.snapshotFrame(TypeSnapshot); err == nil {
		client.trySend(frame)
	}

	go client.writePump()
	go func() {
		client.readPump(context.Background())
		if s.metrics != nil {
			_ = s.metrics.AddWSConnections(context.Background(), -1)
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data []byte, start time.Time, route string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	if s.metrics != nil {
		_ = s.metrics.RecordLatency(r.Context(), route, time.Since(start), http.StatusText(status))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, start time.Time, route string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	if s.metrics != nil {
		_ = s.metrics.IncErrors(r.Context(), route, http.StatusText(status))
		_ = s.metrics.RecordLatency(r.Context(), route, time.Since(start), http.StatusText(status))
	}
}
