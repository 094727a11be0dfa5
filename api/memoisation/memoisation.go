// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Memoises computed alignment bundles in Mongo so repeat requests for the
// same target don't re-run the reprojection. Entries age out via the
// garbage collector, since reprocessed mosaics land under new paths and the
// cache only ever needs to be warm, not durable.
package memoisation

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyalign/core/core/logger"
	"github.com/skyalign/core/core/timestamper"
)

// MemoisedBundlesName - collection holding memoised alignment results
const MemoisedBundlesName = "memoisedBundles"

// MemoisedItem - one cached result. Key encodes the target position and
// all pipeline parameters that affect the output
type MemoisedItem struct {
	Key                 string `bson:"_id"`
	Data                []byte
	DataSize            uint32
	MemoTimeUnixSec     int64
	LastReadTimeUnixSec int64
}

// Store - memoisation reads/writes against one Mongo database
type Store struct {
	DB  *mongo.Database
	TS  timestamper.ITimeStamper
	Log logger.ILogger
}

func NewStore(db *mongo.Database, ts timestamper.ITimeStamper, log logger.ILogger) *Store {
	return &Store{DB: db, TS: ts, Log: log}
}

// Get - returns the cached data for key, or mongo.ErrNoDocuments on a miss.
// A hit refreshes the item's last-read time so the GC keeps it around
func (s *Store) Get(key string) ([]byte, error) {
	ctx := context.TODO()
	coll := s.DB.Collection(MemoisedBundlesName)

	item := MemoisedItem{}
	err := coll.FindOne(ctx, bson.M{"_id": key}).Decode(&item)
	if err != nil {
		return nil, err
	}

	_, err = coll.UpdateByID(ctx, key, bson.D{{Key: "$set", Value: bson.M{"lastreadtimeunixsec": s.TS.GetTimeNowSec()}}})
	if err != nil {
		s.Log.Errorf("Failed to update memoisation read time for %v: %v", key, err)
	}

	return item.Data, nil
}

// Put - upserts a computed result under key
func (s *Store) Put(key string, data []byte) error {
	now := s.TS.GetTimeNowSec()
	item := MemoisedItem{
		Key:                 key,
		Data:                data,
		DataSize:            uint32(len(data)),
		MemoTimeUnixSec:     now,
		LastReadTimeUnixSec: now,
	}

	opt := options.Update().SetUpsert(true)
	_, err := s.DB.Collection(MemoisedBundlesName).UpdateByID(context.TODO(), key, bson.D{{Key: "$set", Value: item}}, opt)
	if err != nil {
		return fmt.Errorf("failed to memoise %v: %v", key, err)
	}
	return nil
}
