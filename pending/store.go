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

// Package pending holds unsigned transactions handed over by a link until
// they are read. Each entry can be read once and expires after a TTL.
package pending

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxEntries = 1024
)

var (
	ErrEmptyTransaction = errors.New("pending: empty transaction")
	ErrStoreFull        = errors.New("pending: store is full")
)

type entry struct {
	txHex     string
	expiresAt time.Time
}

// Store is a read-once pending transaction store safe for concurrent use
type Store struct {
	lock       sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

type StoreOptionFunc func(*Store)

// WithTTL sets how long an entry is kept before it expires
func WithTTL(ttl time.Duration) StoreOptionFunc {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxEntries limits the number of live entries
func WithMaxEntries(maxEntries int) StoreOptionFunc {
	return func(s *Store) {
		if maxEntries > 0 {
			s.maxEntries = maxEntries
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOptionFunc {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(opts ...StoreOptionFunc) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pending")
	return s
}

// Put stores a transaction hex and returns the key to read it back
func (s *Store) Put(txHex string) (string, error) {
	txHex = strings.TrimSpace(txHex)
	if txHex == "" {
		return "", ErrEmptyTransaction
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pruneLocked()
	if len(s.entries) >= s.maxEntries {
		return "", ErrStoreFull
	}
	key := uuid.New().String()
	s.entries[key] = entry{
		txHex:     txHex,
		expiresAt: s.now().Add(s.ttl),
	}
	s.logger.Debug("stored pending transaction", "key", key)
	return key, nil
}

// Take returns the transaction stored under key and removes it. Expired and
// unknown keys return false
func (s *Store) Take(key string) (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	delete(s.entries, key)
	if s.now().After(e.expiresAt) {
		return "", false
	}
	return e.txHex, true
}

// Len returns the number of live entries
func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pruneLocked()
	return len(s.entries)
}

func (s *Store) pruneLocked() {
	now := s.now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
