// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JekaMas/inotify/internal/logger"
)

var (
	metricEventsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "events_decoded_total",
		Help:      "Total number of events read from the kernel",
	})
	metricQueueOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "queue_overflows_total",
		Help:      "Total number of IN_Q_OVERFLOW events",
	})
	metricWatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "watches",
		Help:      "Current number of registered watches",
	})

	metricEventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "events_dispatched_total",
		Help:      "Total number of events handed to a rule command, per rule",
	}, []string{"rule"})
	metricEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "events_dropped_total",
		Help:      "Total number of events dropped because the rule command was busy, per rule",
	}, []string{"rule"})
	metricCommandFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inotify",
		Subsystem: "runner",
		Name:      "command_failures_total",
		Help:      "Total number of rule commands which failed, per rule",
	}, []string{"rule"})
)

// ServeMetrics exposes the metrics on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		log.Logf(logger.INFO, "serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logf(logger.ERROR, "metrics: %v", err)
		}
	}()
}
