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

// Package telemetry provides opt-in, low-overhead metrics for the
// data-plane stage's enforcement hot path. Safe to call from hot paths:
// when disabled, every Observe*/Set* function is a no-op.
package telemetry

import (
	"hash/fnv"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls whether and how metrics are exported.
type Config struct {
	Enabled bool

	// MetricsAddr, when non-empty, starts a dedicated HTTP server serving
	// /metrics. Leave empty if promhttp is already registered elsewhere
	// (e.g. mounted under adminhttp.Server).
	MetricsAddr string

	// SampleRate is the deterministic, per-key probability (0..1) that an
	// individual Observe call's key-level detail is sampled; the
	// aggregate counters below are always incremented regardless of
	// sampling.
	SampleRate float64
}

var (
	modEnabled        atomic.Bool
	samplingThreshold atomic.Uint64

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paio_requests_total",
		Help: "Total enforcement requests observed, by outcome status.",
	}, []string{"status"})

	tokenBucketRejectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paio_token_bucket_rejects_total",
		Help: "Total requests rejected by a token bucket enforcement object.",
	})

	channelsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paio_channels_active",
		Help: "Number of channels currently registered in the running Core.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, tokenBucketRejectsTotal, channelsActive)
}

// Enable configures and activates metrics collection. Safe to call more
// than once; later calls replace the configuration.
func Enable(cfg Config) {
	rate := cfg.SampleRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	var threshold uint64
	switch {
	case rate <= 0:
		threshold = 0
	case rate >= 1:
		threshold = ^uint64(0)
	default:
		max := ^uint64(0)
		f := rate * (float64(max) + 1.0)
		if f < 1 {
			f = 1
		}
		threshold = uint64(f) - 1
	}
	samplingThreshold.Store(threshold)
	modEnabled.Store(cfg.Enabled)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(cfg.MetricsAddr, mux)
		}()
	}
}

// Enabled reports whether metrics collection is currently active.
func Enabled() bool { return modEnabled.Load() }

// Handler exposes the Prometheus handler for mounting under an existing
// HTTP server (adminhttp.Server does this rather than starting its own
// listener via Enable's MetricsAddr).
func Handler() http.Handler { return promhttp.Handler() }

// ObserveRequest records one enforcement outcome by status name.
func ObserveRequest(status string) {
	if !modEnabled.Load() {
		return
	}
	requestsTotal.WithLabelValues(status).Inc()
}

// ObserveTokenBucketReject records one token-bucket rejection.
func ObserveTokenBucketReject() {
	if !modEnabled.Load() {
		return
	}
	tokenBucketRejectsTotal.Inc()
}

// SetChannelsActive updates the active-channel gauge to n.
func SetChannelsActive(n int) {
	if !modEnabled.Load() {
		return
	}
	channelsActive.Set(float64(n))
}

// sampled deterministically decides, from a FNV-1a hash of key, whether
// that key's detail should be sampled at the configured rate — avoids
// per-call RNG cost on the hot path.
func sampled(key string) bool {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64() <= samplingThreshold.Load()
}

// Sampled exposes the sampling decision for callers that want to attach
// optional high-cardinality detail without paying its cost on every
// request.
func Sampled(key string) bool { return sampled(key) }
