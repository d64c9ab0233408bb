package huskoll

import (
	"context"
	"sync"
)

// Synchronize wraps a Controller in a mutex so one device handle can
// be shared by the bridge surfaces (REST handlers, metrics collector,
// MQTT announcer), each of which drives it from its own goroutine.
// One-shot CLI use does not need it.
func Synchronize(c Controller) Controller {
	return &syncController{inner: c}
}

type syncController struct {
	mu    sync.Mutex
	inner Controller
}

func (s *syncController) GetStatus(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GetStatus(ctx)
}

func (s *syncController) UpdateStatus(ctx context.Context, params UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.UpdateStatus(ctx, params)
}

func (s *syncController) SetTemp(ctx context.Context, value float64, suppressWarning bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.SetTemp(ctx, value, suppressWarning)
}

func (s *syncController) ChangeTemperature(ctx context.Context, by float64, forceRefresh bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ChangeTemperature(ctx, by, forceRefresh)
}

func (s *syncController) CachedStatus() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.CachedStatus()
}
