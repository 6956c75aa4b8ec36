package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ReservationManager gates admission on a shared byte budget. A task
// reserves its file's size before starting and releases on scoped
// exit; Reserve blocks while the pool is saturated. Requests larger
// than the pool clamp to the pool size, so the largest file still
// runs, alone if need be.
type ReservationManager struct {
	capacity int64
	sem      *semaphore.Weighted
	used     atomic.Int64
}

func NewReservationManager(capacity int64) *ReservationManager {
	if capacity < 1 {
		capacity = 1
	}
	return &ReservationManager{
		capacity: capacity,
		sem:      semaphore.NewWeighted(capacity),
	}
}

func (m *ReservationManager) Capacity() int64 { return m.capacity }

// Used reports the bytes currently reserved.
func (m *ReservationManager) Used() int64 { return m.used.Load() }

// Pressure is the fraction of the pool in use, in [0, 1].
func (m *ReservationManager) Pressure() float64 {
	return float64(m.Used()) / float64(m.capacity)
}

// Reserve blocks until the requested bytes fit the pool (or ctx is
// done) and returns the release function. Release is idempotent.
func (m *ReservationManager) Reserve(ctx context.Context, bytes int64) (func(), error) {
	if bytes < 1 {
		bytes = 1
	}
	if bytes > m.capacity {
		bytes = m.capacity
	}
	if err := m.sem.Acquire(ctx, bytes); err != nil {
		return nil, err
	}
	m.used.Add(bytes)
	reservedBytes.Set(float64(m.Used()))

	var released atomic.Bool
	release := func() {
		if released.Swap(true) {
			return
		}
		m.used.Add(-bytes)
		reservedBytes.Set(float64(m.Used()))
		m.sem.Release(bytes)
	}
	return release, nil
}
