// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errSimulated = errors.New("simulated failure")

// testService is a controllable suture.Service.
type testService struct {
	name     string
	starts   atomic.Int32
	failures atomic.Int32

	mu       sync.Mutex
	failFor  int32
	finalErr error
}

func newTestService(name string) *testService {
	return &testService{name: name}
}

// failTimes makes the first n Serve calls return errSimulated.
func (s *testService) failTimes(n int32) *testService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor = n
	return s
}

// returning makes Serve return err immediately after any failures.
func (s *testService) returning(err error) *testService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalErr = err
	return s
}

func (s *testService) Serve(ctx context.Context) error {
	s.starts.Add(1)

	s.mu.Lock()
	failFor, finalErr := s.failFor, s.finalErr
	s.mu.Unlock()

	if failFor > 0 && s.failures.Add(1) <= failFor {
		return errSimulated
	}
	if finalErr != nil {
		return finalErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *testService) String() string { return s.name }

func (s *testService) startCount() int32 { return s.starts.Load() }
