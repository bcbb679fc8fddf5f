// Package api exposes the session over HTTP and websocket for dashboard
// consumers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-arbitrage/internal/config"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/market"
	"github.com/rxtech-lab/argo-arbitrage/internal/session"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// Server wires the session controller to HTTP routes and the market
// websocket stream.
type Server struct {
	cfg        config.Config
	controller *session.Controller
	provider   market.Provider
	hub        *Hub
	router     *mux.Router
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer creates the API server and registers all routes. The market
// stream starts feeding the hub immediately via provider subscription and
// the controller's trade callback.
func NewServer(cfg config.Config, controller *session.Controller, provider market.Provider, log *logger.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		controller: controller,
		provider:   provider,
		hub:        NewHub(log),
		router:     mux.NewRouter(),
		logger:     log,
	}

	s.routes()

	provider.Subscribe(cfg.Symbols, cfg.Venues, func(quote types.VenueQuote) {
		s.hub.Broadcast(StreamMessage{Type: "quote", Data: quote})
	})

	controller.OnTrade(func(trade types.Trade) {
		s.hub.Broadcast(StreamMessage{Type: "trade", Data: trade})
	})

	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	api.HandleFunc("/opportunities", s.handleOpportunities).Methods(http.MethodGet)
	api.HandleFunc("/opportunities/best", s.handleBestOpportunities).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings/reset", s.handleResetSettings).Methods(http.MethodPost)
	api.HandleFunc("/session/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/session/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/session/speed", s.handleSpeed).Methods(http.MethodPost)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/rules", s.handleRules).Methods(http.MethodGet)
	api.HandleFunc("/validation", s.handleValidation).Methods(http.MethodGet)

	s.router.HandleFunc("/ws/market", s.hub.HandleWS)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves HTTP on the configured address until the context ends.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.API.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.hub.Close()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", zap.String("address", s.cfg.API.ListenAddress))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return defaultListLimit
	}

	return limit
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.GetStatus())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.controller.GetRecentTrades(limitParam(r))
	if trades == nil {
		trades = []types.Trade{}
	}

	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := s.controller.Opportunities(limitParam(r))
	if opps == nil {
		opps = []types.Opportunity{}
	}

	s.writeJSON(w, http.StatusOK, opps)
}

func (s *Server) handleBestOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := s.controller.BestOpportunities(limitParam(r))
	if opps == nil {
		opps = []types.Opportunity{}
	}

	s.writeJSON(w, http.StatusOK, opps)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.RiskSettings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch types.RiskSettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	updated, err := s.controller.UpdateRiskSettings(patch)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)

		return
	}

	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.ResetRiskSettings())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.controller.Start()
	s.writeJSON(w, http.StatusOK, s.controller.GetStatus())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.controller.Stop()
	s.writeJSON(w, http.StatusOK, s.controller.GetStatus())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed string `json:"speed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	if err := s.controller.SetTradingSpeed(req.Speed); err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.controller.GetStatus())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	found := s.controller.TriggerScan()
	if found == nil {
		found = []types.Opportunity{}
	}

	s.writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.RuleCatalog())
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	approved, rejected, rate := s.controller.ValidationTallies()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"approved":      approved,
		"rejected":      rejected,
		"approval_rate": rate,
	})
}
