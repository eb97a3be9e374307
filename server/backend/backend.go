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

// Package backend provides the backend implementation of the sync gateway.
// This package is responsible for managing the database and other resources
// required to serve documents, updates and presences.
package backend

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alepanel/colab/pkg/locker"
	"github.com/alepanel/colab/server/backend/database"
	memdb "github.com/alepanel/colab/server/backend/database/memory"
	"github.com/alepanel/colab/server/backend/database/mongo"
	"github.com/alepanel/colab/server/backend/housekeeping"
	"github.com/alepanel/colab/server/logging"
	"github.com/alepanel/colab/server/profiling/prometheus"
)

// Backend manages the resources of the sync gateway: the database, the hot
// snapshot cache, per-document lockers and the housekeeping service.
type Backend struct {
	Config *Config

	// Lockers is used to serialize snapshot saves per document.
	Lockers *locker.Locker
	// SnapshotCache keeps recently touched snapshots in front of the database.
	SnapshotCache *lru.Cache[string, *database.SnapshotInfo]

	// Housekeeping is used to purge stale presence rows in the background.
	Housekeeping *housekeeping.Housekeeping

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database

	// PresenceTTL is the parsed activity window for presence snapshots.
	PresenceTTL time.Duration
	// UpdateRetention is the parsed retention window for update-log rows.
	UpdateRetention time.Duration
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	housekeepingConf *housekeeping.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	presenceTTL, err := conf.ParsePresenceTTL()
	if err != nil {
		return nil, err
	}
	updateRetention, err := conf.ParseUpdateRetention()
	if err != nil {
		return nil, err
	}

	snapshotCache, err := lru.New[string, *database.SnapshotInfo](conf.SnapshotCacheSize)
	if err != nil {
		return nil, err
	}

	// If the MongoDB configuration is given, dial MongoDB. Otherwise fall
	// back to the embedded memory database.
	var db database.Database
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	housekeeper, err := housekeeping.New(housekeepingConf, db, metrics, presenceTTL)
	if err != nil {
		return nil, err
	}

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	logging.DefaultLogger().Infof("backend created: db: %s", dbInfo)

	return &Backend{
		Config: conf,

		Lockers:       locker.New(),
		SnapshotCache: snapshotCache,
		Housekeeping:  housekeeper,

		Metrics: metrics,
		DB:      db,

		PresenceTTL:     presenceTTL,
		UpdateRetention: updateRetention,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start(ctx context.Context) error {
	if err := b.Housekeeping.Start(ctx); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	if err := b.Housekeeping.Stop(); err != nil {
		return err
	}

	if err := b.DB.Close(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
