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

package adminhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paioctl/internal/dataplane/agent"
	"paioctl/internal/dataplane/audit"
	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/enforcement"
	"paioctl/internal/dataplane/stage"
)

func buildObject(token uint32, kind int32, props map[string]float64) (stage.EnforcementObject, error) {
	switch enforcement.ObjectKind(kind) {
	case enforcement.KindNoop:
		return enforcement.NewNoopObject(token), nil
	case enforcement.KindTokenBucketPull:
		refill := time.Duration(props["refill_period_ms"]) * time.Millisecond
		return enforcement.NewTokenBucketPull(token, props["capacity"], refill, true), nil
	default:
		return nil, stage.ErrUnknownObjectKind
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	c := stage.NewCore(stage.CoreOptions{
		ContextType:          core.ContextTypeGeneral,
		ChannelTokenFamily:   differentiation.HashX86_32,
		ObjectTokenFamily:    differentiation.HashX86_32,
		DefaultQueueCapacity: 16,
		DefaultWorkerCount:   1,
		DefaultFastPathOnly:  true,
		BuildObject:          buildObject,
	})
	a := agent.New(c, audit.NewRuleAuditSink(audit.NewMockSink()))
	mux := http.NewServeMux()
	NewServer(a).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadyRoundtrip(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]bool
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if body["ready"] {
		t.Fatalf("expected not ready initially")
	}

	resp2, err := http.Post(srv.URL+"/ready", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp2.StatusCode)
	}

	resp3, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body3 map[string]bool
	json.NewDecoder(resp3.Body).Decode(&body3)
	resp3.Body.Close()
	if !body3["ready"] {
		t.Fatalf("expected ready after POST /ready")
	}
}

func TestHousekeepingAndEnforcementRuleFlow(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/rules/housekeeping", map[string]interface{}{
		"operation":  int32(core.OpCreateChannel),
		"channel_id": 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 creating channel, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp2 := postJSON(t, srv.URL+"/rules/housekeeping", map[string]interface{}{
		"operation":   int32(core.OpCreateObject),
		"channel_id":  1,
		"object_id":   1,
		"object_kind": int32(enforcement.KindTokenBucketPull),
		"properties":  map[string]float64{"capacity": 10, "refill_period_ms": 1000},
	})
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 creating object, got %d", resp2.StatusCode)
	}
	resp2.Body.Close()

	resp3 := postJSON(t, srv.URL+"/rules/enforcement", map[string]interface{}{
		"channel_id": 1,
		"object_id":  1,
		"properties": map[string]float64{"capacity": 20},
	})
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 reconfiguring object, got %d", resp3.StatusCode)
	}
}

func TestChannelStatsNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/stats/channel?channel_id=999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestChannelStatsFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/rules/housekeeping", map[string]interface{}{
		"operation":  int32(core.OpCreateChannel),
		"channel_id": 5,
	})
	resp.Body.Close()

	resp2, err := http.Get(srv.URL + "/stats/channel?channel_id=5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
}
