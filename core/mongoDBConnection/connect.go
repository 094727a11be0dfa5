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

// Lowest-level code to connect to the Mongo DB used for memoising
// computed alignment bundles
package mongoDBConnection

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyalign/core/core/logger"
)

// Connect - connects to the mongo instance at the given URI and pings it.
// An empty URI means a default local instance, eg mongo running in docker:
// docker run -d --name mongo-on-docker -p 27017:27017 mongo
func Connect(mongoURI string, iLog logger.ILogger) (*mongo.Client, error) {
	if len(mongoURI) <= 0 {
		mongoURI = "mongodb://localhost"
	}

	iLog.Infof("Connecting to mongo db: %v...", mongoURI)

	cmdMonitor := makeMongoCommandMonitor(iLog)
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(mongoURI).SetMonitor(cmdMonitor).SetDirect(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo DB connection: %v", err)
	}

	// Try to ping the DB to confirm connection
	var result bson.M
	err = client.Database("admin").RunCommand(context.TODO(), bson.D{{Key: "ping", Value: 1}}).Decode(&result)
	if err != nil {
		return nil, err
	}

	iLog.Infof("Successfully connected to mongo db!")
	return client, nil
}

// GetDatabaseName - consistent environment-suffixed DB naming
func GetDatabaseName(dbName string, envName string) string {
	return dbName + "-" + envName
}

func makeMongoCommandMonitor(iLog logger.ILogger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			iLog.Debugf("mongo %v took %v", evt.CommandName, evt.Duration)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			iLog.Errorf("mongo %v failed: %v", evt.CommandName, evt.Failure)
		},
	}
}
