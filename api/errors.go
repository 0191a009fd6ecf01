// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/vote-inspector/govaction"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/pending"
	"github.com/blinklabs-io/vote-inspector/pipeline"
)

var (
	// ErrBadRequest is returned when the provided HTTP request is malformed
	ErrBadRequest = errors.New("invalid request parameters")
	// ErrNotFound is returned for unknown or already consumed items
	ErrNotFound = errors.New("item not found")
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// HttpCodeForError maps an error to the HTTP status of its reply
func HttpCodeForError(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, govaction.ErrInvalidPrefix),
		errors.Is(err, govaction.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidTransaction),
		errors.Is(err, ledger.ErrTransactionDecode),
		errors.Is(err, ledger.ErrEmptyTransaction),
		errors.Is(err, ledger.ErrTransactionBodyNull):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pending.ErrStoreFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error object
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, HttpCodeForError(err), ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
