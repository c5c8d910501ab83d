/*
 * Copyright 2025 Carver Automation Corporation.
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

package hotcache

import (
	"context"
	"sync"
	"time"
)

// Manager lazily opens one Store per environment key and runs the
// periodic eviction sweep across all of them.
type Manager struct {
	opts Options

	mu     sync.Mutex
	stores map[string]*Store
	closed bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager builds a Manager. Call Start to begin the sweep loop.
func NewManager(opts Options) *Manager {
	opts.defaults()

	return &Manager{
		opts:   opts,
		stores: make(map[string]*Store),
		stop:   make(chan struct{}),
	}
}

// Get returns the store for an environment, opening it on first use.
func (m *Manager) Get(env string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &CacheError{Op: OpWrite, Environment: env, Err: errStoreClosed}
	}

	if store, ok := m.stores[env]; ok {
		return store, nil
	}

	store, err := OpenStore(env, m.opts)
	if err != nil {
		return nil, err
	}

	m.stores[env] = store

	m.opts.Logger.Info().Str("environment", env).Msg("Opened hot cache store")

	return store, nil
}

// Start launches the background eviction sweep. It returns immediately;
// the sweep stops when ctx is done or Close is called.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
}

func (m *Manager) sweep(ctx context.Context) {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))

	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.mu.Unlock()

	for _, store := range stores {
		removed, err := store.Evict(ctx)
		if err != nil {
			m.opts.Logger.Error().Err(err).Str("environment", store.env).
				Msg("Hot cache sweep failed")
			continue
		}

		if removed > 0 {
			m.opts.Logger.Debug().Int64("removed", removed).Str("environment", store.env).
				Msg("Hot cache sweep evicted rows")
		}
	}
}

// Close stops the sweep and closes every store.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	var firstErr error

	for env, store := range m.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(m.stores, env)
	}

	return firstErr
}
