// Package source synthesizes section loaders from configuration. The real
// dashboard plugs network-backed loaders into the coordinator; the demo CLI
// simulates them with configurable latency and failure rates.
package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.trai.ch/zerr"
)

// Record is one synthetic row of section data.
type Record struct {
	ID    int     `json:"id"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Payload is what a simulated loader returns for a section.
type Payload struct {
	Section   string   `json:"section"`
	Records   []Record `json:"records"`
	FetchedAt string   `json:"fetchedAt"`
}

// Simulator builds loaders from section specs.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand

	// now is the clock used for payload timestamps.
	now func() time.Time
}

// New creates a Simulator with a time-seeded random source.
func New() *Simulator {
	return NewWithSeed(uint64(time.Now().UnixNano()))
}

// NewWithSeed creates a Simulator with a fixed seed for reproducible runs.
func NewWithSeed(seed uint64) *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewPCG(seed, seed>>1)),
		now: time.Now,
	}
}

// Loader returns a ports.Loader simulating the fetch described by spec.
func (s *Simulator) Loader(spec domain.SectionSpec) ports.Loader {
	return func(ctx context.Context) (any, error) {
		if err := s.wait(ctx, spec.Latency); err != nil {
			return nil, err
		}
		if s.roll() < spec.FailureRate {
			return nil, zerr.With(zerr.New("simulated fetch failure"), "section", spec.ID)
		}
		return s.payload(spec), nil
	}
}

// PanelLoader returns a ports.PanelLoader simulating deferred UI module
// fetches. Unknown panel ids reject, mirroring a broken chunk reference.
func (s *Simulator) PanelLoader(latency time.Duration, failureRate float64) ports.PanelLoader {
	return func(ctx context.Context, id string) error {
		if err := s.wait(ctx, latency); err != nil {
			return err
		}
		if s.roll() < failureRate {
			return zerr.With(zerr.New("simulated chunk fetch failure"), "panel", id)
		}
		return nil
	}
}

func (s *Simulator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) payload(spec domain.SectionSpec) Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, spec.Items)
	for i := range records {
		records[i] = Record{
			ID:    i + 1,
			Label: fmt.Sprintf("%s-%04d", spec.ID, i+1),
			Value: float64(int(s.rng.Float64()*10000)) / 100,
		}
	}
	return Payload{
		Section:   spec.ID,
		Records:   records,
		FetchedAt: s.now().UTC().Format(time.RFC3339),
	}
}
