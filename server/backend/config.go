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

package backend

import (
	"fmt"
	"time"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// PresenceTTL is how long a session may go without a heartbeat before it
	// counts as departed and disappears from presence snapshots.
	PresenceTTL string `yaml:"PresenceTTL"`

	// UpdateRetention is how long update-log rows are kept once a full
	// snapshot has been saved. It must comfortably exceed the clients' sync
	// interval: a row purged before every replica pulled it can only be
	// recovered from a snapshot that already contains it.
	UpdateRetention string `yaml:"UpdateRetention"`

	// SnapshotCacheSize is the number of hot document snapshots kept in
	// memory in front of the database.
	SnapshotCacheSize int `yaml:"SnapshotCacheSize"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.PresenceTTL); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--backend-presence-ttl" flag: %w`,
			c.PresenceTTL,
			err,
		)
	}

	if _, err := time.ParseDuration(c.UpdateRetention); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--backend-update-retention" flag: %w`,
			c.UpdateRetention,
			err,
		)
	}

	if c.SnapshotCacheSize <= 0 {
		return fmt.Errorf(
			`invalid argument %d for "--backend-snapshot-cache-size" flag`,
			c.SnapshotCacheSize,
		)
	}

	return nil
}

// ParsePresenceTTL returns the presence TTL as a duration.
func (c *Config) ParsePresenceTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.PresenceTTL)
	if err != nil {
		return 0, fmt.Errorf("parse presence ttl %s: %w", c.PresenceTTL, err)
	}
	return ttl, nil
}

// ParseUpdateRetention returns the update retention as a duration.
func (c *Config) ParseUpdateRetention() (time.Duration, error) {
	retention, err := time.ParseDuration(c.UpdateRetention)
	if err != nil {
		return 0, fmt.Errorf("parse update retention %s: %w", c.UpdateRetention, err)
	}
	return retention, nil
}
