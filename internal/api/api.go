// Package api is the thin REST surface the core supplies for an HMI
// binding: device listing, device data, latest AI analysis, command
// submission, and wear reset. The HTTP binding itself is external to
// the pipeline's scope; this package is the one concrete adapter.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fieldmesh/telemetry-core/internal/cache"
	"github.com/fieldmesh/telemetry-core/internal/model"
	"github.com/fieldmesh/telemetry-core/internal/ring"
	"github.com/fieldmesh/telemetry-core/internal/safety"
	"github.com/fieldmesh/telemetry-core/internal/wear"
)

type Server struct {
	rings     *ring.Store
	cache     *cache.Cache
	gate      *safety.Gate
	predictor *wear.Predictor
}

func NewServer(rings *ring.Store, c *cache.Cache, gate *safety.Gate, predictor *wear.Predictor) *Server {
	return &Server{rings: rings, cache: c, gate: gate, predictor: predictor}
}

type CommandRequest struct {
	CommandType string         `json:"command_type"`
	Parameters  map[string]any `json:"parameters"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Start(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", s.handleDevices)
	mux.HandleFunc("/devices/", s.handleDeviceOperations)
	mux.HandleFunc("/control/command", s.handleControlCommand)
	mux.HandleFunc("/reset-wear/", s.handleResetWear)

	corsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		mux.ServeHTTP(w, r)
	})

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("starting REST API server")
	return http.ListenAndServe(addr, corsHandler)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cached, ok := s.cache.Get(cache.KindDeviceList, "default"); ok {
		s.writeJSON(w, http.StatusOK, cached)
		return
	}

	ids := s.rings.DeviceIDs()
	s.cache.Set(cache.KindDeviceList, "default", ids)
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleDeviceOperations(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	parts := strings.Split(path, "/")

	if len(parts) < 1 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "device id required")
		return
	}
	deviceID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "data":
		s.getDeviceData(w, r, deviceID)
	case len(parts) == 2 && parts[1] == "ai-analysis":
		s.getAIAnalysis(w, r, deviceID)
	default:
		s.writeError(w, http.StatusNotFound, "unknown operation")
	}
}

func (s *Server) getDeviceData(w http.ResponseWriter, r *http.Request, deviceID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = n
	}

	cacheKey := fmt.Sprintf("%s:%d", deviceID, count)
	if cached, ok := s.cache.Get(cache.KindDeviceData, cacheKey); ok {
		s.writeJSON(w, http.StatusOK, cached)
		return
	}

	readings, ok := s.rings.Last(deviceID, count)
	if !ok {
		readings = []model.SensorReading{}
	}
	s.cache.Set(cache.KindDeviceData, cacheKey, readings)
	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) getAIAnalysis(w http.ResponseWriter, r *http.Request, deviceID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, ok := s.cache.Get(cache.KindAIAnalysis, deviceID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no analysis available for device")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleControlCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	err := s.gate.TryCommand(safety.Command{Type: req.CommandType, Parameters: req.Parameters})
	if err != nil {
		if errors.Is(err, safety.ErrSafetyBlocked) {
			s.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResetWear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	deviceID := strings.TrimPrefix(r.URL.Path, "/reset-wear/")
	if deviceID == "" {
		s.writeError(w, http.StatusNotFound, "device id required")
		return
	}

	s.predictor.Reset(deviceID)
	s.cache.Invalidate(deviceID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
