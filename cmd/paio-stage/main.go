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

// paio-stage runs a data-plane stage as a standalone process: it loads a
// rule file (if given), serves the administrative HTTP surface, and marks
// itself ready once both have succeeded.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paioctl"
	"paioctl/internal/dataplane/adminhttp"
	"paioctl/internal/dataplane/audit"
	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/telemetry"
)

func main() {
	addr := flag.String("http", ":8080", "administrative HTTP listen address")
	ruleFile := flag.String("rule-file", "", "path to a housekeeping/enforcement rule file (line or .yaml)")
	queueCapacity := flag.Int("queue-capacity", 256, "per-channel submission queue capacity")
	workerCount := flag.Int("workers", 4, "per-channel worker pool size")
	fastPath := flag.Bool("fast-path", false, "enforce synchronously, bypassing the queue and worker pool")
	auditAdapter := flag.String("audit-adapter", "mock", "audit sink adapter: mock, redis, kafka, file")
	auditFile := flag.String("audit-file", "", "JSONL log path for the file audit adapter")
	metricsEnabled := flag.Bool("metrics", true, "expose Prometheus metrics on the admin HTTP surface")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	flag.Parse()

	telemetry.Enable(telemetry.Config{Enabled: *metricsEnabled, SampleRate: 1.0})

	stage, err := paioctl.NewStage(paioctl.StageOptions{
		ContextType:        core.ContextTypeGeneral,
		ChannelTokenFamily: differentiation.HashX86_32,
		ObjectTokenFamily:  differentiation.HashX86_32,
		QueueCapacity:      *queueCapacity,
		WorkerCount:        *workerCount,
		FastPathOnly:       *fastPath,
		AuditAdapter:       *auditAdapter,
		AuditClientOptions: audit.ClientOptions{FilePath: *auditFile},
	})
	if err != nil {
		log.Fatalf("paio-stage: building stage: %v", err)
	}
	defer stage.Close()

	if *ruleFile != "" {
		if err := stage.LoadRuleFile(*ruleFile); err != nil {
			log.Fatalf("paio-stage: loading rule file %s: %v", *ruleFile, err)
		}
		log.Printf("paio-stage: loaded rules from %s", *ruleFile)
	}

	stage.MarkDataPlaneStageReady()
	log.Printf("paio-stage: %s", stage.StageInfoString())

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      adminRoutes(stage),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("paio-stage: admin HTTP listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("paio-stage: http: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("paio-stage: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("paio-stage: http shutdown: %v", err)
	}
}

func adminRoutes(stage *paioctl.Stage) http.Handler {
	mux := http.NewServeMux()
	adminhttp.NewServer(stage.Agent()).RegisterRoutes(mux)
	return mux
}
