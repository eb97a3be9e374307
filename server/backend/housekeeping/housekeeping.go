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

// Package housekeeping provides the housekeeping service. The housekeeping
// service is responsible for purging presence rows whose sessions stopped
// heartbeating without a clean leave.
package housekeeping

import (
	"context"
	"time"

	"github.com/alepanel/colab/server/backend/database"
	"github.com/alepanel/colab/server/logging"
	"github.com/alepanel/colab/server/profiling/prometheus"
)

// Housekeeping is the housekeeping service. It periodically sweeps the
// presence table and removes rows whose last heartbeat is older than the
// presence TTL.
type Housekeeping struct {
	database database.Database
	metrics  *prometheus.Metrics

	interval    time.Duration
	presenceTTL time.Duration

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// New creates a new housekeeping instance.
func New(
	conf *Config,
	database database.Database,
	metrics *prometheus.Metrics,
	presenceTTL time.Duration,
) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		database: database,
		metrics:  metrics,

		interval:    interval,
		presenceTTL: presenceTTL,

		ctx:        ctx,
		cancelFunc: cancelFunc,
	}, nil
}

// Start starts the housekeeping service.
func (h *Housekeeping) Start(_ context.Context) error {
	go h.run()
	return nil
}

// Stop stops the housekeeping service.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()

	return nil
}

// run is the housekeeping loop.
func (h *Housekeeping) run() {
	for {
		select {
		case <-time.After(h.interval):
		case <-h.ctx.Done():
			return
		}

		ctx := context.Background()
		if err := h.purgeStalePresences(ctx); err != nil {
			logging.From(ctx).Error(err)
		}
	}
}

// purgeStalePresences removes presence rows not seen within the TTL.
func (h *Housekeeping) purgeStalePresences(ctx context.Context) error {
	start := time.Now()

	purged, err := h.database.PurgeStalePresenceInfos(ctx, start.Add(-h.presenceTTL))
	if err != nil {
		return err
	}

	if h.metrics != nil {
		h.metrics.AddPurgedPresences(purged)
		h.metrics.ObserveHousekeepingDuration(time.Since(start).Seconds())
	}

	if purged > 0 {
		logging.From(ctx).Infof(
			"HSKP: purged %d stale presences, %s",
			purged,
			time.Since(start),
		)
	}

	return nil
}
