package memoisation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunGarbageCollector - periodically deletes memoised bundles that haven't
// been read within the allowed age. Intended to run in its own goroutine
// for the life of the API
func (s *Store) RunGarbageCollector(intervalSec uint32, oldestAllowedSec uint32) {
	for range time.Tick(time.Second * time.Duration(intervalSec)) {
		s.collectGarbage(oldestAllowedSec)
	}
}

func (s *Store) collectGarbage(oldestAllowedSec uint32) {
	s.Log.Infof("Memoisation GC starting...")

	oldestAllowedUnixSec := s.TS.GetTimeNowSec() - int64(oldestAllowedSec)

	ctx := context.TODO()
	opts := options.Delete()
	filter := bson.M{"lastreadtimeunixsec": bson.M{"$lt": oldestAllowedUnixSec}}
	coll := s.DB.Collection(MemoisedBundlesName)

	delResult, err := coll.DeleteMany(ctx, filter, opts)
	if err != nil {
		s.Log.Errorf("Memoisation GC delete error: %v", err)
	} else {
		s.Log.Infof("Memoisation GC deleted %v items", delResult.DeletedCount)
	}
}
