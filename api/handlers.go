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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/govaction"
	"github.com/blinklabs-io/vote-inspector/pending"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"github.com/go-chi/chi/v5"
)

// InspectRequest is the body of POST /api/inspect. The wallet context is
// optional, but networkId and stakeCredential must be given together
type InspectRequest struct {
	TxHex           string `json:"txHex"`
	NetworkID       *uint  `json:"networkId,omitempty"`
	StakeCredential string `json:"stakeCredential,omitempty"`
	// SelectedMember is a member hot credential, id or name
	SelectedMember string `json:"selectedMember,omitempty"`
}

type GovIDResponse struct {
	GovActionID  string `json:"govActionID"`
	TxHash       string `json:"txHash"`
	Index        uint32 `json:"index"`
	ExplorerLink string `json:"explorerLink"`
}

type PendingRequest struct {
	TxHex string `json:"txHex"`
}

type PendingResponse struct {
	Key   string `json:"key,omitempty"`
	TxHex string `json:"txHex,omitempty"`
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	var req InspectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.TxHex) == "" {
		writeError(w, fmt.Errorf("%w: txHex is required", ErrBadRequest))
		return
	}
	itemOpts, err := s.itemOptions(req)
	if err != nil {
		writeError(w, err)
		return
	}
	item := s.pipeline.Check(r.Context(), req.TxHex, itemOpts...)
	state, err := pipeline.StateFromItem(item)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Debug("inspection failed", "error", err)
		writeJSON(w, HttpCodeForError(err), state)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) itemOptions(req InspectRequest) ([]pipeline.ItemOption, error) {
	var ret []pipeline.ItemOption
	switch {
	case req.NetworkID != nil && req.StakeCredential != "":
		w, err := wallet.NewWatchWalletFromHex(*req.NetworkID, req.StakeCredential)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		ret = append(ret, pipeline.WithItemWallet(w))
	case req.NetworkID != nil || req.StakeCredential != "":
		return nil, fmt.Errorf(
			"%w: networkId and stakeCredential must be given together",
			ErrBadRequest,
		)
	default:
		ret = append(ret, pipeline.WithItemWallet(nil))
	}
	if req.SelectedMember != "" {
		ret = append(
			ret,
			pipeline.WithItemSelectedMember(s.resolveMember(req.SelectedMember)),
		)
	}
	return ret, nil
}

// resolveMember maps a member id or name to its hot credential. Anything
// else is taken as a credential already
func (s *Server) resolveMember(member string) string {
	if m, ok := s.members.ByID(member); ok {
		return m.HotCredential
	}
	if m, ok := s.members.ByName(member); ok {
		return m.HotCredential
	}
	return member
}

func (s *Server) handleGovIDEncode(w http.ResponseWriter, r *http.Request) {
	txHash := r.URL.Query().Get("txHash")
	index, err := strconv.ParseUint(r.URL.Query().Get("index"), 10, 32)
	if err != nil {
		writeError(w, fmt.Errorf("%w: index: %w", ErrBadRequest, err))
		return
	}
	id, err := govaction.FromHex(txHash, uint32(index))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, s.govIDResponse(id, txHash, uint32(index)))
}

func (s *Server) handleGovIDDecode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actionId, err := govaction.Decode(id)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	writeJSON(
		w,
		http.StatusOK,
		s.govIDResponse(id, actionId.TransactionId.String(), actionId.GovActionIdx),
	)
}

func (s *Server) govIDResponse(id string, txHash string, index uint32) GovIDResponse {
	return GovIDResponse{
		GovActionID:  id,
		TxHash:       strings.ToLower(txHash),
		Index:        index,
		ExplorerLink: govaction.ExplorerURL(id, s.networkId),
	}
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	networkId := s.networkId
	if network := r.URL.Query().Get("network"); network != "" {
		tmpNetwork, err := strconv.ParseUint(network, 10, 8)
		if err != nil {
			writeError(w, fmt.Errorf("%w: network: %w", ErrBadRequest, err))
			return
		}
		networkId = uint(tmpNetwork)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	data, err := s.koios.LiveData(r.Context(), networkId)
	if err != nil {
		s.logger.Error("failed to fetch on-chain data", "error", err)
		writeJSON(
			w,
			http.StatusInternalServerError,
			ErrorResponse{Error: err.Error()},
		)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleProxyOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePendingPut(w http.ResponseWriter, r *http.Request) {
	var req PendingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	key, err := s.pending.Put(req.TxHex)
	if err != nil {
		if errors.Is(err, pending.ErrEmptyTransaction) {
			err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PendingResponse{Key: key})
}

func (s *Server) handlePendingTake(w http.ResponseWriter, r *http.Request) {
	txHex, ok := s.pending.Take(chi.URLParam(r, "key"))
	if !ok {
		writeError(w, ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, PendingResponse{TxHex: txHex})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	members := s.members.Members()
	if members == nil {
		members = []committee.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

