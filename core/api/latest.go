/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"context"
	"sync"
)

// Latest tracks the newest request per key. Starting a request cancels the
// previous one for the same key, and responses from superseded requests can
// be recognized and dropped. Generations only grow, so keys are never
// forgotten.
type Latest struct {
	mu      sync.Mutex
	entries map[string]*latestEntry
}

type latestEntry struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewLatest creates an empty tracker.
func NewLatest() *Latest {
	return &Latest{entries: make(map[string]*latestEntry)}
}

// Begin starts a request for key. The returned context is cancelled when a
// newer request for the same key begins or done is called.
func (l *Latest) Begin(ctx context.Context, key string) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &latestEntry{}
		l.entries[key] = e
	} else if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	e.cancel = cancel
	l.mu.Unlock()

	done := func() {
		cancel()
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.entries[key]; ok && cur.generation == gen {
			cur.cancel = nil
		}
	}
	return ctx, gen, done
}

// Current reports whether gen is still the newest request for key. A
// finished newest request is still current until another one begins.
func (l *Latest) Current(key string, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	return ok && e.generation == gen
}
