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

package koios_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/vote-inspector/koios"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(
	t *testing.T,
	handler http.HandlerFunc,
) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func koiosHandler(t *testing.T, epoch string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tip":
			if r.URL.Query().Get("select") != "epoch_no" {
				t.Errorf("unexpected tip query: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"epoch_no":` + epoch + `}]`))
		case "/epoch_info":
			query := r.URL.Query()
			if query.Get("_epoch_no") != epoch || query.Get("_include_next_epoch") != "false" {
				t.Errorf("unexpected epoch_info query: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"end_time":1760000000}]`))
		case "/proposal_list":
			if r.URL.Query().Get("expiration") != "gte."+epoch {
				t.Errorf("unexpected proposal_list query: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"meta_json":{"body":{"title":"Treasury"}},"proposal_id":"gov_action1abc","proposal_type":"TreasuryWithdrawals","expiration":585}]`))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestLiveData(t *testing.T) {
	mainnet := newTestServer(t, koiosHandler(t, "580"))
	preprod := newTestServer(t, koiosHandler(t, "220"))
	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	client := koios.NewClient(
		koios.WithHTTPClient(&http.Client{Transport: transport}),
		koios.WithMainnetURL(mainnet.URL+"/"),
		koios.WithPreprodURL(preprod.URL),
	)

	data, err := client.LiveData(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(580), data.Epoch)
	assert.Equal(t, int64(1760000000), data.EndTime)
	require.Len(t, data.LiveGAData, 1)
	proposal := data.LiveGAData[0]
	assert.Equal(t, "gov_action1abc", proposal.ProposalID)
	assert.Equal(t, "TreasuryWithdrawals", proposal.ProposalType)
	require.NotNil(t, proposal.Expiration)
	assert.Equal(t, uint64(585), *proposal.Expiration)
	assert.JSONEq(t, `{"body":{"title":"Treasury"}}`, string(proposal.MetaJSON))

	epoch, err := client.CurrentEpoch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(220), epoch)
}

func TestBaseURL(t *testing.T) {
	client := koios.NewClient()
	assert.Equal(t, koios.DefaultMainnetURL, client.BaseURL(1))
	assert.Equal(t, koios.DefaultPreprodURL, client.BaseURL(0))
	assert.Equal(t, koios.DefaultPreprodURL, client.BaseURL(7))
}

func TestErrors(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tip":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	client := koios.NewClient(
		koios.WithHTTPClient(server.Client()),
		koios.WithMainnetURL(server.URL),
	)
	_, err := client.CurrentEpoch(context.Background(), 1)
	assert.ErrorIs(t, err, koios.ErrEmptyResponse)

	_, err = client.EpochEndTime(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Equal(t, "error fetching epoch end time: 503", err.Error())

	_, err = client.LiveProposals(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Equal(t, "error fetching live governance actions: 503", err.Error())

	_, err = client.LiveData(context.Background(), 1)
	assert.ErrorIs(t, err, koios.ErrEmptyResponse)
}
