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

package main

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyalign/core/api/config"
	"github.com/skyalign/core/api/endpoints"
	"github.com/skyalign/core/api/services"
)

func main() {
	// This is for prometheus
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(":2112", nil)
	}()

	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("Something went wrong with API config. Error: %v\n", err)
	}

	svcs := services.InitServices(cfg)

	if svcs.Memoised != nil {
		go svcs.Memoised.RunGarbageCollector(cfg.MemoiseGCInterSec, cfg.MemoiseMaxAgeSec)
	}

	muxRouter := mux.NewRouter()
	muxRouter.HandleFunc("/alignment", endpoints.MakeAlignmentHandler(svcs)).Methods("GET")
	muxRouter.HandleFunc("/preview", endpoints.MakePreviewHandler(svcs)).Methods("GET")
	muxRouter.HandleFunc("/version-json", endpoints.MakeVersionHandler(svcs)).Methods("GET")

	muxRouter.Use(endpoints.PrometheusMiddleware)

	// Now also log this to the world...
	svcs.Log.Infof("API version \"%v\" started...", services.ApiVersion)

	log.Fatal(
		http.ListenAndServe(":8080",
			handlers.CORS(
				handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
				handlers.AllowedMethods([]string{"GET", "HEAD", "OPTIONS"}),
				handlers.AllowedOrigins([]string{"*"}))(muxRouter)))
}
