/*
 * Copyright 2025 The Alepanel Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace     = "colab"
	methodLabel   = "method"
	documentLabel = "document"
)

// Metrics manages the metric information that colab is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverHandledCounter *prometheus.CounterVec

	pushedUpdatesTotal   *prometheus.CounterVec
	pulledUpdatesTotal   *prometheus.CounterVec
	pushedUpdateBytes    *prometheus.CounterVec
	snapshotSavesTotal   *prometheus.CounterVec
	snapshotBytesTotal   *prometheus.CounterVec
	snapshotCacheHits    prometheus.Counter
	snapshotCacheMisses  prometheus.Counter
	purgedUpdatesTotal   prometheus.Counter
	purgedPresencesTotal prometheus.Counter

	presenceHeartbeatsTotal *prometheus.CounterVec

	housekeepingDurationSeconds prometheus.Histogram
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverHandledCounter: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "server_handled_total",
			Help:      "Total number of RPCs completed on the server, regardless of success or failure.",
		}, []string{methodLabel, "code"}),
		pushedUpdatesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pushed_updates_total",
			Help:      "The total count of updates pushed by clients.",
		}, []string{documentLabel}),
		pulledUpdatesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pulled_updates_total",
			Help:      "The total count of updates sent to pulling clients.",
		}, []string{documentLabel}),
		pushedUpdateBytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pushed_update_bytes_total",
			Help:      "The total bytes of updates pushed by clients.",
		}, []string{documentLabel}),
		snapshotSavesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "saves_total",
			Help:      "The total count of saved document snapshots.",
		}, []string{documentLabel}),
		snapshotBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "bytes_total",
			Help:      "The total bytes of saved document snapshots.",
		}, []string{documentLabel}),
		snapshotCacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "cache_hits_total",
			Help:      "The total count of snapshot loads served from the cache.",
		}),
		snapshotCacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "cache_misses_total",
			Help:      "The total count of snapshot loads that went to the database.",
		}),
		purgedUpdatesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "housekeeping",
			Name:      "purged_updates_total",
			Help:      "The total count of update-log rows purged after snapshot saves.",
		}),
		purgedPresencesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "housekeeping",
			Name:      "purged_presences_total",
			Help:      "The total count of stale presence rows purged.",
		}),
		presenceHeartbeatsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "heartbeats_total",
			Help:      "The total count of presence heartbeats received.",
		}, []string{documentLabel}),
		housekeepingDurationSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "housekeeping",
			Name:      "duration_seconds",
			Help:      "The time spent in a single housekeeping pass.",
		}),
	}

	return metrics, nil
}

// ObserveServerHandled adds the number of RPCs completed on the server.
func (m *Metrics) ObserveServerHandled(method, code string) {
	m.serverHandledCounter.With(prometheus.Labels{
		methodLabel: method,
		"code":      code,
	}).Inc()
}

// AddPushedUpdates adds the number of updates pushed for the document.
func (m *Metrics) AddPushedUpdates(docKey string, count int, bytes int) {
	m.pushedUpdatesTotal.With(prometheus.Labels{documentLabel: docKey}).Add(float64(count))
	m.pushedUpdateBytes.With(prometheus.Labels{documentLabel: docKey}).Add(float64(bytes))
}

// AddPulledUpdates adds the number of updates sent to a pulling client.
func (m *Metrics) AddPulledUpdates(docKey string, count int) {
	m.pulledUpdatesTotal.With(prometheus.Labels{documentLabel: docKey}).Add(float64(count))
}

// AddSnapshotSave adds a saved snapshot and its size for the document.
func (m *Metrics) AddSnapshotSave(docKey string, bytes int) {
	m.snapshotSavesTotal.With(prometheus.Labels{documentLabel: docKey}).Inc()
	m.snapshotBytesTotal.With(prometheus.Labels{documentLabel: docKey}).Add(float64(bytes))
}

// AddSnapshotCacheHit adds a snapshot load served from the cache.
func (m *Metrics) AddSnapshotCacheHit() {
	m.snapshotCacheHits.Inc()
}

// AddSnapshotCacheMiss adds a snapshot load that went to the database.
func (m *Metrics) AddSnapshotCacheMiss() {
	m.snapshotCacheMisses.Inc()
}

// AddPurgedUpdates adds the number of purged update-log rows.
func (m *Metrics) AddPurgedUpdates(count int64) {
	m.purgedUpdatesTotal.Add(float64(count))
}

// AddPurgedPresences adds the number of purged stale presence rows.
func (m *Metrics) AddPurgedPresences(count int64) {
	m.purgedPresencesTotal.Add(float64(count))
}

// AddPresenceHeartbeat adds a presence heartbeat for the document.
func (m *Metrics) AddPresenceHeartbeat(docKey string) {
	m.presenceHeartbeatsTotal.With(prometheus.Labels{documentLabel: docKey}).Inc()
}

// ObserveHousekeepingDuration records the time spent in a housekeeping pass.
func (m *Metrics) ObserveHousekeepingDuration(seconds float64) {
	m.housekeepingDurationSeconds.Observe(seconds)
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
