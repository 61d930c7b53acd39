// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package adminhttp implements the stage's administrative HTTP surface:
// readiness, rule admission, and statistics collection, all driven off an
// Agent rather than talking to the enforcement path directly.
package adminhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"paioctl/internal/dataplane/agent"
	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/telemetry"
)

// Server exposes an Agent over HTTP for out-of-process control-plane
// tooling. It is a thin layer: every handler's real work happens in the
// wrapped Agent/Core.
type Server struct {
	agent *agent.Agent
}

// NewServer builds a Server around agent.
func NewServer(a *agent.Agent) *Server {
	return &Server{agent: a}
}

// RegisterRoutes attaches this server's handlers onto mux, plus the
// Prometheus handler if telemetry has been enabled.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/stage-info", s.handleStageInfo)
	mux.HandleFunc("/rules/housekeeping", s.handleHousekeepingRule)
	mux.HandleFunc("/rules/enforcement", s.handleEnforcementRule)
	mux.HandleFunc("/stats/channel", s.handleChannelStats)
	if telemetry.Enabled() {
		mux.Handle("/metrics", telemetry.Handler())
	}
}

// ListenAndServe starts the HTTP server on addr with the same timeouts the
// stage's public-facing server uses.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleReady reports readiness on GET and flips it to true on POST.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]bool{"ready": s.agent.StageReady()})
	case http.MethodPost:
		s.agent.MarkDataPlaneStageReady()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStageInfo(w http.ResponseWriter, _ *http.Request) {
	name, env := s.agent.StageInfo()
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "env": env})
}

// housekeepingRuleRequest mirrors core.HousekeepingRule for the wire,
// keeping the HTTP surface decoupled from internal field names.
type housekeepingRuleRequest struct {
	RuleID     uint64             `json:"rule_id"`
	Operation  int32              `json:"operation"`
	ChannelID  uint32             `json:"channel_id"`
	ObjectID   uint32             `json:"object_id"`
	ObjectKind int32              `json:"object_kind"`
	Properties map[string]float64 `json:"properties"`
}

// handleHousekeepingRule employs a housekeeping rule and immediately
// executes the full pending batch, matching the Agent's own
// employ-then-execute flow rather than leaving rules queued indefinitely.
func (s *Server) handleHousekeepingRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req housekeepingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ruleID := s.agent.EmployHousekeepingRule(core.HousekeepingRule{
		RuleID:     req.RuleID,
		Operation:  core.HousekeepingOperation(req.Operation),
		ChannelID:  req.ChannelID,
		ObjectID:   req.ObjectID,
		ObjectKind: req.ObjectKind,
		Properties: req.Properties,
	})
	if err := s.agent.ExecuteHousekeepingRules(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"rule_id": ruleID})
}

type enforcementRuleRequest struct {
	RuleID     uint64             `json:"rule_id"`
	ChannelID  uint32             `json:"channel_id"`
	ObjectID   uint32             `json:"object_id"`
	Properties map[string]float64 `json:"properties"`
}

func (s *Server) handleEnforcementRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req enforcementRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	err := s.agent.EmployEnforcementRule(r.Context(), core.EnforcementRule{
		RuleID:     req.RuleID,
		ChannelID:  req.ChannelID,
		ObjectID:   req.ObjectID,
		Properties: req.Properties,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChannelStats returns the windowed statistics snapshot for
// ?channel_id=N, 404ing if no such channel is registered.
func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("channel_id")
	channelID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		http.Error(w, "channel_id must be a valid uint32", http.StatusBadRequest)
		return
	}
	ch, ok := s.agent.Core().Channel(uint32(channelID))
	if !ok {
		http.Error(w, "no such channel", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ch.Statistics())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
