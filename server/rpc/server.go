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

// Package rpc provides the HTTP API of the sync gateway. Clients poll it to
// exchange snapshots, binary update messages and presence heartbeats.
package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/logging"
)

// maxRequestBodyBytes bounds decoded request bodies. Snapshots of text
// documents stay far below this.
const maxRequestBodyBytes = 16 << 20

// Server is an HTTP server that handles the requests from clients.
type Server struct {
	conf       *Config
	backend    *backend.Backend
	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend) (*Server, error) {
	server := &Server{
		conf:    conf,
		backend: be,
		router:  mux.NewRouter(),
	}
	server.router.Use(server.instrument)
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, nil
}

// Handler returns the HTTP handler of this server. It is used for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	return s.listenAndServe()
}

// Shutdown shuts down this server.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Errorf("HTTP server Shutdown: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server close: %v", err)
	}
}

func (s *Server) listenAndServe() error {
	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)
		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ListenAndServeTLS(s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			logging.DefaultLogger().Errorf("HTTP server ListenAndServe: %v", err)
		}
	}()
	return nil
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps the router with per-request logging and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r.Body = http.MaxBytesReader(recorder, r.Body, maxRequestBodyBytes)

		logger := logging.New("rpc")
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(logging.With(r.Context(), logger)))

		s.backend.Metrics.ObserveServerHandled(
			r.Method+" "+routeTemplate(r),
			strconv.Itoa(recorder.status),
		)
		logger.Debugf(
			"%s %s %d %s",
			r.Method,
			r.URL.Path,
			recorder.status,
			time.Since(start),
		)
	})
}

// routeTemplate returns the matched route pattern so metrics are not split
// per document key.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	return tmpl
}
