package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/leaderboard"
)

// LeaderboardResp is the wire form of one leaderboard page.
type LeaderboardResp struct {
	Cached          bool                 `json:"cached"`
	Leaderboard     []*leaderboard.Entry `json:"leaderboard"`
	ObligationCount int                  `json:"obligationCount"`
	Page            int                  `json:"page"`
	PageSize        int                  `json:"pageSize"`
	ScannedAt       int64                `json:"scannedAt"`
	TotalEntries    int                  `json:"totalEntries"`
	TotalPages      int                  `json:"totalPages"`
}

type LBServer struct {
	ctx      context.Context
	logger   logging.Logger
	agg      *leaderboard.Aggregator
	router   *mux.Router
	server   *http.Server
	pageSize int
}

func NewLBServer(ctx context.Context, logger logging.Logger, agg *leaderboard.Aggregator, port, defaultPageSize int) *LBServer {
	if defaultPageSize < 1 {
		defaultPageSize = leaderboard.DefaultPageSize
	}
	lbServer := &LBServer{
		ctx:      ctx,
		logger:   logger,
		agg:      agg,
		pageSize: defaultPageSize,
	}
	router := mux.NewRouter()
	router.HandleFunc("/leaderboard", lbServer.OnQueryLeaderboard).Methods("GET")
	router.HandleFunc("/obligations", lbServer.OnQueryObligations).Methods("GET")
	router.HandleFunc("/healthCheckup", lbServer.OnQueryHealthCheckup).Methods("GET")
	lbServer.router = router
	lbServer.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		WriteTimeout: time.Second * 25,
		Handler:      router,
	}
	return lbServer
}

// Router exposes the handler tree. Tests only.
func (s *LBServer) Router() http.Handler {
	return s.router
}

func (s *LBServer) Shutdown() error {
	return s.server.Shutdown(s.ctx)
}

func (s *LBServer) Run() error {
	s.logger.Info("Starting leaderboard api httpserver on %s", s.server.Addr)
	go func() {
		err := s.server.ListenAndServe()
		if err != nil {
			if err == http.ErrServerClosed {
				s.logger.Critical("Server closed under request")
			} else {
				s.logger.Critical("Server closed unexpected", err)
			}
		}
	}()

	<-s.ctx.Done()
	s.logger.Info("Leaderboard api receives shutdown signal.")
	return nil
}

func (s *LBServer) OnQueryLeaderboard(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recover err:%v", r)
			s.jsonError(w, "internal error", fmt.Sprintf("%v", r), http.StatusInternalServerError)
		}
	}()

	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := r.URL.Query()
	req := leaderboard.Request{
		ForceRefresh: query.Get("force_refresh") == "true",
	}
	var err error
	if req.Page, err = intParam(query.Get("page"), 1); err != nil {
		s.logger.Info("invalid parameter:%#v", query)
		s.jsonError(w, "invalid parameter", "page must be a positive integer", http.StatusBadRequest)
		return
	}
	if req.PageSize, err = intParam(query.Get("pageSize"), s.pageSize); err != nil {
		s.logger.Info("invalid parameter:%#v", query)
		s.jsonError(w, "invalid parameter", "pageSize must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := s.agg.Leaderboard(req)
	if err != nil {
		s.logger.Error("fail to build leaderboard: %s", err)
		s.jsonError(w, "internal error", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, s-maxage=30, stale-while-revalidate=60")
	entries := result.Entries
	if entries == nil {
		entries = []*leaderboard.Entry{}
	}
	json.NewEncoder(w).Encode(&LeaderboardResp{
		Cached:          result.Cached,
		Leaderboard:     entries,
		ObligationCount: result.ObligationCount,
		Page:            result.Page,
		PageSize:        result.PageSize,
		ScannedAt:       result.ScannedAt,
		TotalEntries:    result.TotalEntries,
		TotalPages:      result.TotalPages,
	})
}

func (s *LBServer) OnQueryObligations(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recover err:%v", r)
			s.jsonError(w, "internal error", fmt.Sprintf("%v", r), http.StatusInternalServerError)
		}
	}()

	w.Header().Set("Access-Control-Allow-Origin", "*")

	owner := ""
	if raw := r.URL.Query().Get("owner"); raw != "" {
		var err error
		if owner, err = assets.CanonicalAddress(raw); err != nil {
			s.logger.Info("invalid owner %q: %s", raw, err)
			s.jsonError(w, "invalid parameter", err.Error(), http.StatusBadRequest)
			return
		}
	}
	views, err := s.agg.Obligations(owner)
	if err != nil {
		if errors.Is(err, leaderboard.ErrInvalidOwner) {
			s.logger.Info("invalid owner %q: %s", owner, err)
			s.jsonError(w, "invalid parameter", err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("fail to list obligations: %s", err)
		s.jsonError(w, "internal error", err.Error(), http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []*leaderboard.ObligationView{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(views)
}

func (s *LBServer) OnQueryHealthCheckup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	resp := make(map[string]interface{})
	resp["message"] = "alive"
	resp["scanning"] = s.agg.Scanning()
	json.NewEncoder(w).Encode(resp)
}

func (s *LBServer) jsonError(w http.ResponseWriter, errMsg, detail string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg.Error = errMsg
	msg.Message = detail
	json.NewEncoder(w).Encode(msg)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid integer parameter %q", raw)
	}
	return v, nil
}
