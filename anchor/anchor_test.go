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

package anchor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/vote-inspector/anchor"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testContent = `{"body":{"comment":"rationale"}}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func contentServer(t *testing.T) *httptest.Server {
	return newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.json", "/ipfs/QmTest":
			_, _ = w.Write([]byte(testContent))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestCheckMatch(t *testing.T) {
	server := contentServer(t)
	checker := anchor.NewChecker(anchor.WithHTTPClient(server.Client()))
	expected := ledger.Blake2b256Hash([]byte(testContent)).String()
	assert.True(t, checker.Check(context.Background(), server.URL+"/a.json", expected))
	assert.True(
		t,
		checker.Check(context.Background(), server.URL+"/a.json", strings.ToUpper(expected)),
	)
}

func TestCheckFailures(t *testing.T) {
	server := contentServer(t)
	checker := anchor.NewChecker(anchor.WithHTTPClient(server.Client()))
	expected := ledger.Blake2b256Hash([]byte(testContent)).String()
	ctx := context.Background()
	// Mismatch
	assert.False(
		t,
		checker.Check(ctx, server.URL+"/a.json", ledger.Blake2b256Hash(nil).String()),
	)
	// Not found
	assert.False(t, checker.Check(ctx, server.URL+"/missing.json", expected))
	// Sentinels never hit the network
	assert.False(t, checker.Check(ctx, anchor.Unavailable, expected))
	assert.False(t, checker.Check(ctx, server.URL+"/a.json", anchor.Unavailable))
	assert.False(t, checker.Check(ctx, "", expected))
	// No gateway configured for ipfs
	assert.False(t, checker.Check(ctx, "ipfs://QmTest", expected))
	// Transport failure
	assert.False(t, checker.Check(ctx, "http://127.0.0.1:1/a.json", expected))
}

func TestCheckMaxBodySize(t *testing.T) {
	server := contentServer(t)
	checker := anchor.NewChecker(
		anchor.WithHTTPClient(server.Client()),
		anchor.WithMaxBodySize(8),
	)
	_, err := checker.ContentHash(context.Background(), server.URL+"/a.json")
	assert.ErrorIs(t, err, anchor.ErrBodyTooLarge)
}

func TestResolveURL(t *testing.T) {
	gatewayServer := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	cache := anchor.NewGatewayCache(
		[]string{gatewayServer.URL + "/ipfs/"},
		anchor.WithGatewayHTTPClient(gatewayServer.Client()),
	)
	checker := anchor.NewChecker(anchor.WithGatewayCache(cache))
	ctx := context.Background()
	testDefs := []struct {
		input    string
		expected string
	}{
		{"https://example.org/a.json", "https://example.org/a.json"},
		{"http://example.org/a.json", "http://example.org/a.json"},
		{"example.org/a.json", "https://example.org/a.json"},
		{"ipfs://QmTest", gatewayServer.URL + "/ipfs/QmTest"},
	}
	for _, testDef := range testDefs {
		resolved, err := checker.ResolveURL(ctx, testDef.input)
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, resolved)
	}
}

func TestCheckIpfs(t *testing.T) {
	server := contentServer(t)
	// The content server also answers the gateway probe
	probeServer := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/ipfs/"+anchor.TestCID {
			w.WriteHeader(http.StatusOK)
			return
		}
		server.Config.Handler.ServeHTTP(w, r)
	})
	client := &http.Client{}
	cache := anchor.NewGatewayCache(
		[]string{probeServer.URL + "/ipfs/"},
		anchor.WithGatewayHTTPClient(client),
	)
	checker := anchor.NewChecker(
		anchor.WithHTTPClient(client),
		anchor.WithGatewayCache(cache),
	)
	expected := ledger.Blake2b256Hash([]byte(testContent)).String()
	assert.True(t, checker.Check(context.Background(), "ipfs://QmTest", expected))
	client.CloseIdleConnections()
}

func TestGatewayCacheOrder(t *testing.T) {
	var downHits, upHits atomic.Int32
	down := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		downHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	up := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upHits.Add(1)
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/ipfs/"+anchor.TestCID, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	client := &http.Client{}
	defer client.CloseIdleConnections()
	cache := anchor.NewGatewayCache(
		[]string{"", down.URL + "/ipfs/", up.URL + "/ipfs/"},
		anchor.WithGatewayHTTPClient(client),
	)
	ctx := context.Background()
	gateway, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, up.URL+"/ipfs/", gateway)

	// Cached, no further probing
	gateway, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, up.URL+"/ipfs/", gateway)
	assert.Equal(t, int32(1), downHits.Load())
	assert.Equal(t, int32(1), upHits.Load())

	// Explicit refresh probes again
	_, err = cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upHits.Load())

	cache.Invalidate()
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), upHits.Load())
}

func TestGatewayCacheNoneAvailable(t *testing.T) {
	down := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	cache := anchor.NewGatewayCache(
		[]string{down.URL + "/ipfs/"},
		anchor.WithGatewayHTTPClient(down.Client()),
	)
	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, anchor.ErrNoGateway)
	_, err = anchor.NewGatewayCache(nil).Refresh(context.Background())
	assert.ErrorIs(t, err, anchor.ErrNoGateway)
}

func TestGatewayCacheConcurrentRefresh(t *testing.T) {
	up := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	cache := anchor.NewGatewayCache(
		[]string{up.URL + "/ipfs/"},
		anchor.WithGatewayHTTPClient(up.Client()),
	)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gateway, err := cache.Refresh(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, up.URL+"/ipfs/", gateway)
		}()
	}
	wg.Wait()
}
