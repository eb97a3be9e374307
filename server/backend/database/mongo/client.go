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

// Package mongo implements the database interface using MongoDB.
package mongo

import (
	"context"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend/database"
	"github.com/alepanel/colab/server/logging"
)

const (
	// ColSnapshots is the name of the snapshots collection.
	ColSnapshots = "snapshots"

	// ColUpdates is the name of the update-log collection.
	ColUpdates = "updates"

	// ColPresences is the name of the presences collection.
	ColPresences = "presences"
)

// Client is a client that connects to MongoDB and reads or saves replicated
// document state.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo %s: %w", conf.ConnectionURI, err)
	}

	c := &Client{
		config: conf,
		client: client,
	}
	if err := c.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("connected to mongo: %s", conf.ConnectionURI)
	return c, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("disconnect from mongo: %w", err)
	}
	return nil
}

// FindSnapshotInfo returns the latest stored snapshot of the document.
func (c *Client) FindSnapshotInfo(
	ctx context.Context,
	docKey document.Key,
) (*database.SnapshotInfo, error) {
	result := c.collection(ColSnapshots).FindOne(ctx, bson.M{
		"document_name": docKey.String(),
	})
	if result.Err() == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%s: %w", docKey, database.ErrSnapshotNotFound)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docKey, result.Err())
	}

	info := &database.SnapshotInfo{}
	if err := result.Decode(info); err != nil {
		return nil, fmt.Errorf("decode snapshot of %s: %w", docKey, err)
	}
	return info, nil
}

// UpsertSnapshotInfo overwrites the snapshot of the document.
func (c *Client) UpsertSnapshotInfo(
	ctx context.Context,
	docKey document.Key,
	state []byte,
	updatedAt gotime.Time,
) (*database.SnapshotInfo, error) {
	if _, err := c.collection(ColSnapshots).UpdateOne(ctx, bson.M{
		"document_name": docKey.String(),
	}, bson.M{
		"$set": bson.M{
			"state":      state,
			"updated_at": updatedAt,
		},
	}, options.UpdateOne().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("upsert snapshot of %s: %w", docKey, err)
	}

	return &database.SnapshotInfo{
		DocumentName: docKey.String(),
		State:        state,
		UpdatedAt:    updatedAt,
	}, nil
}

// ListSnapshotInfos returns all stored snapshots ordered by document name.
func (c *Client) ListSnapshotInfos(ctx context.Context) ([]*database.SnapshotInfo, error) {
	cursor, err := c.collection(ColSnapshots).Find(ctx, bson.M{}, options.Find().SetSort(bson.M{
		"document_name": 1,
	}))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}
	return infos, nil
}

// DeleteSnapshotInfo removes the snapshot of the document.
func (c *Client) DeleteSnapshotInfo(ctx context.Context, docKey document.Key) error {
	if _, err := c.collection(ColSnapshots).DeleteOne(ctx, bson.M{
		"document_name": docKey.String(),
	}); err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docKey, err)
	}
	return nil
}

// CreateUpdateInfo appends a binary update message to the document's log.
func (c *Client) CreateUpdateInfo(
	ctx context.Context,
	docKey document.Key,
	clientID string,
	update []byte,
) (*database.UpdateInfo, error) {
	info := &database.UpdateInfo{
		ID:           types.NewID(),
		DocumentName: docKey.String(),
		ClientID:     clientID,
		Update:       update,
		CreatedAt:    gotime.Now(),
	}

	if _, err := c.collection(ColUpdates).InsertOne(ctx, info); err != nil {
		return nil, fmt.Errorf("insert update of %s: %w", docKey, err)
	}
	return info, nil
}

// FindUpdateInfos returns the update-log rows of the document strictly after
// the given id, oldest first.
func (c *Client) FindUpdateInfos(
	ctx context.Context,
	docKey document.Key,
	after types.ID,
) ([]*database.UpdateInfo, error) {
	filter := bson.M{
		"document_name": docKey.String(),
	}
	if after != "" {
		filter["_id"] = bson.M{"$gt": after}
	}

	cursor, err := c.collection(ColUpdates).Find(ctx, filter, options.Find().SetSort(bson.M{
		"_id": 1,
	}))
	if err != nil {
		return nil, fmt.Errorf("find updates of %s: %w", docKey, err)
	}

	var infos []*database.UpdateInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch updates of %s: %w", docKey, err)
	}
	return infos, nil
}

// PurgeUpdateInfos removes update-log rows created before the given time.
func (c *Client) PurgeUpdateInfos(
	ctx context.Context,
	docKey document.Key,
	before gotime.Time,
) (int64, error) {
	result, err := c.collection(ColUpdates).DeleteMany(ctx, bson.M{
		"document_name": docKey.String(),
		"created_at":    bson.M{"$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("purge updates of %s: %w", docKey, err)
	}
	return result.DeletedCount, nil
}

// UpsertPresenceInfo stores the presence heartbeat of a session.
func (c *Client) UpsertPresenceInfo(
	ctx context.Context,
	docKey document.Key,
	entry types.PresenceEntry,
	seenAt gotime.Time,
) (*database.PresenceInfo, error) {
	if _, err := c.collection(ColPresences).UpdateOne(ctx, bson.M{
		"document_name": docKey.String(),
		"client_id":     entry.ClientID,
	}, bson.M{
		"$set": bson.M{
			"user_id":    entry.UserID,
			"user_name":  entry.UserName,
			"user_color": entry.UserColor,
			"cursor":     entry.Cursor,
			"seen_at":    seenAt,
		},
	}, options.UpdateOne().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("upsert presence of %s: %w", docKey, err)
	}

	return &database.PresenceInfo{
		DocumentName: docKey.String(),
		ClientID:     entry.ClientID,
		UserID:       entry.UserID,
		UserName:     entry.UserName,
		UserColor:    entry.UserColor,
		Cursor:       entry.Cursor,
		SeenAt:       seenAt,
	}, nil
}

// FindPresenceInfos returns the presence entries seen after the given time.
func (c *Client) FindPresenceInfos(
	ctx context.Context,
	docKey document.Key,
	seenAfter gotime.Time,
) ([]*database.PresenceInfo, error) {
	cursor, err := c.collection(ColPresences).Find(ctx, bson.M{
		"document_name": docKey.String(),
		"seen_at":       bson.M{"$gt": seenAfter},
	}, options.Find().SetSort(bson.M{
		"client_id": 1,
	}))
	if err != nil {
		return nil, fmt.Errorf("find presences of %s: %w", docKey, err)
	}

	var infos []*database.PresenceInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch presences of %s: %w", docKey, err)
	}
	return infos, nil
}

// DeletePresenceInfo removes the presence entry of the given session.
func (c *Client) DeletePresenceInfo(
	ctx context.Context,
	docKey document.Key,
	clientID string,
) error {
	result, err := c.collection(ColPresences).DeleteOne(ctx, bson.M{
		"document_name": docKey.String(),
		"client_id":     clientID,
	})
	if err != nil {
		return fmt.Errorf("delete presence of %s: %w", docKey, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s in %s: %w", clientID, docKey, database.ErrPresenceNotFound)
	}
	return nil
}

// PurgeStalePresenceInfos removes presence entries not seen since the given
// time, across all documents.
func (c *Client) PurgeStalePresenceInfos(
	ctx context.Context,
	seenBefore gotime.Time,
) (int64, error) {
	result, err := c.collection(ColPresences).DeleteMany(ctx, bson.M{
		"seen_at": bson.M{"$lt": seenBefore},
	})
	if err != nil {
		return 0, fmt.Errorf("purge presences: %w", err)
	}
	return result.DeletedCount, nil
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	if _, err := c.collection(ColSnapshots).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create snapshot indexes: %w", err)
	}

	if _, err := c.collection(ColUpdates).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "document_name", Value: 1},
			{Key: "_id", Value: 1},
		},
	}); err != nil {
		return fmt.Errorf("create update indexes: %w", err)
	}

	if _, err := c.collection(ColPresences).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "document_name", Value: 1},
				{Key: "client_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "seen_at", Value: 1}},
		},
	}); err != nil {
		return fmt.Errorf("create presence indexes: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.ColabDatabase).Collection(name)
}
