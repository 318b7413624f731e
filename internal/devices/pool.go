// Package devices holds the set of speakers jukebot controls and the Sonos
// UPnP client that drives each of them.
package devices

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"jukebot/internal/domain"
	"jukebot/internal/metrics"
)

// Pool is the fixed, ordered set of devices. The first device is primary:
// reads go to it and its answer is the one reported to users.
type Pool struct {
	devices []domain.Device
	logger  *slog.Logger
}

func NewPool(logger *slog.Logger, devices ...domain.Device) (*Pool, error) {
	if len(devices) == 0 {
		return nil, domain.ErrEmptyPool
	}
	return &Pool{devices: append([]domain.Device(nil), devices...), logger: logger}, nil
}

func (p *Pool) Primary() domain.Device { return p.devices[0] }

func (p *Pool) Len() int { return len(p.devices) }

// Result is the outcome of one device's share of a fan-out.
type Result[T any] struct {
	Device domain.Device
	Value  T
	Err    error
}

// Outcome is a Result for operations without a value.
type Outcome = Result[struct{}]

// Collect runs fn against every device concurrently and waits for all of
// them. A failure on one device never stops the others. Results are returned
// in pool order.
func Collect[T any](ctx context.Context, p *Pool, op string, fn func(context.Context, domain.Device) (T, error)) []Result[T] {
	results := make([]Result[T], len(p.devices))

	var wg sync.WaitGroup
	for i, d := range p.devices {
		i, d := i, d
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := fn(ctx, d)
			results[i] = Result[T]{Device: d, Value: v, Err: err}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			p.logger.Error("device operation failed", "device", r.Device.Address(), "op", op, "err", r.Err)
			metrics.DeviceError(r.Device.Address(), op)
		}
	}
	return results
}

// Broadcast is Collect for operations that only report an error.
func (p *Pool) Broadcast(ctx context.Context, op string, fn func(context.Context, domain.Device) error) []Outcome {
	return Collect(ctx, p, op, func(ctx context.Context, d domain.Device) (struct{}, error) {
		return struct{}{}, fn(ctx, d)
	})
}

// Failures returns the results that carry an error.
func Failures[T any](results []Result[T]) []Result[T] {
	return lo.Filter(results, func(r Result[T], _ int) bool { return r.Err != nil })
}

// AllFailed reports whether no device succeeded.
func AllFailed[T any](results []Result[T]) bool {
	return len(Failures(results)) == len(results)
}

// FirstSuccess returns the earliest successful result in pool order, so the
// primary wins whenever it succeeded.
func FirstSuccess[T any](results []Result[T]) (Result[T], bool) {
	return lo.Find(results, func(r Result[T]) bool { return r.Err == nil })
}
