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

package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/internal/validation"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend/database"
	"github.com/alepanel/colab/server/documents"
	"github.com/alepanel/colab/server/logging"
	"github.com/alepanel/colab/server/presences"
)

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/documents", s.handleListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{document}", s.handleRemoveDocument).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{document}/snapshot", s.handleGetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/documents/{document}/snapshot", s.handleSaveSnapshot).Methods(http.MethodPut)
	api.HandleFunc("/documents/{document}/updates", s.handlePushUpdate).Methods(http.MethodPost)
	api.HandleFunc("/documents/{document}/updates", s.handlePullUpdates).Methods(http.MethodGet)
	api.HandleFunc("/documents/{document}/presences", s.handleListPresences).Methods(http.MethodGet)
	api.HandleFunc("/documents/{document}/presences/{client}", s.handleRefreshPresence).Methods(http.MethodPut)
	api.HandleFunc("/documents/{document}/presences/{client}", s.handleLeavePresence).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	summaries, err := documents.ListDocumentSummaries(r.Context(), s.backend)
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, types.DocumentsResponse{Documents: summaries})
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])

	if err := documents.RemoveDocument(r.Context(), s.backend, docKey); err != nil {
		writeError(r, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])

	info, err := documents.LoadSnapshot(r.Context(), s.backend, docKey)
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, types.SnapshotResponse{
		DocumentName: info.DocumentName,
		State:        info.State,
		UpdatedAt:    info.UpdatedAt,
	})
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])

	req := types.SaveSnapshotRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(r, w, err)
		return
	}

	info, err := documents.SaveSnapshot(r.Context(), s.backend, docKey, req.State)
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, types.SnapshotResponse{
		DocumentName: info.DocumentName,
		State:        info.State,
		UpdatedAt:    info.UpdatedAt,
	})
}

func (s *Server) handlePushUpdate(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])

	req := types.PushUpdateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(r, w, err)
		return
	}

	info, err := documents.PushUpdate(r.Context(), s.backend, docKey, req.ClientID, req.Update)
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusCreated, types.PushUpdateResponse{ID: info.ID})
}

func (s *Server) handlePullUpdates(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])
	after := types.ID(r.URL.Query().Get("after"))
	exclude := r.URL.Query().Get("exclude")

	infos, err := documents.PullUpdates(r.Context(), s.backend, docKey, after, exclude)
	if err != nil {
		writeError(r, w, err)
		return
	}

	resp := types.PullUpdatesResponse{}
	for _, info := range infos {
		resp.Updates = append(resp.Updates, types.UpdateMessage{
			ID:        info.ID,
			ClientID:  info.ClientID,
			Update:    info.Update,
			CreatedAt: info.CreatedAt,
		})
	}

	writeJSON(r, w, http.StatusOK, resp)
}

func (s *Server) handleListPresences(w http.ResponseWriter, r *http.Request) {
	docKey := document.Key(mux.Vars(r)["document"])
	exclude := r.URL.Query().Get("exclude")

	entries, err := presences.List(r.Context(), s.backend, docKey, exclude)
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, types.PresencesResponse{Presences: entries})
}

func (s *Server) handleRefreshPresence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docKey := document.Key(vars["document"])

	entry := types.PresenceEntry{}
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeBadRequest(r, w, err)
		return
	}
	// The path is authoritative for the session identity.
	entry.ClientID = vars["client"]

	if _, err := presences.Refresh(r.Context(), s.backend, docKey, entry); err != nil {
		writeError(r, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeavePresence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docKey := document.Key(vars["document"])

	if err := presences.Leave(r.Context(), s.backend, docKey, vars["client"]); err != nil {
		writeError(r, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(r *http.Request, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(r.Context()).Errorf("encode response: %v", err)
	}
}

func writeBadRequest(r *http.Request, w http.ResponseWriter, err error) {
	writeJSON(r, w, http.StatusBadRequest, types.ErrorResponse{Message: err.Error()})
}

// writeError maps domain errors to HTTP status codes.
func writeError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrSnapshotNotFound):
		writeJSON(r, w, http.StatusNotFound, types.ErrorResponse{Message: err.Error()})
	case errors.Is(err, document.ErrInvalidKey),
		errors.Is(err, documents.ErrEmptyUpdate),
		errors.Is(err, documents.ErrEmptySnapshot),
		isValidationError(err):
		writeBadRequest(r, w, err)
	default:
		logging.From(r.Context()).Errorf("handle request: %v", err)
		writeJSON(r, w, http.StatusInternalServerError, types.ErrorResponse{Message: err.Error()})
	}
}

func isValidationError(err error) bool {
	structErr := &validation.StructError{}
	violation := validation.Violation{}
	return errors.As(err, &structErr) || errors.As(err, &violation)
}
