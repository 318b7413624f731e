package devices

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"jukebot/internal/domain"
)

// stubDevice embeds the interface so only the methods a test calls need
// implementing.
type stubDevice struct {
	domain.Device
	addr  string
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (d *stubDevice) Address() string { return d.addr }

func (d *stubDevice) Stop(ctx context.Context) error {
	d.calls.Add(1)
	time.Sleep(d.delay)
	return d.err
}

func (d *stubDevice) Enqueue(ctx context.Context, uri string) (domain.EnqueueResult, error) {
	d.calls.Add(1)
	if d.err != nil {
		return domain.EnqueueResult{}, d.err
	}
	return domain.EnqueueResult{FirstTrackNumberEnqueued: len(d.addr)}, nil
}

func TestNewPool_RejectsEmpty(t *testing.T) {
	if _, err := NewPool(testLogger()); !errors.Is(err, domain.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
}

func TestPool_PrimaryIsFirst(t *testing.T) {
	a, b := &stubDevice{addr: "a"}, &stubDevice{addr: "b"}
	p, err := NewPool(testLogger(), a, b)
	if err != nil {
		t.Fatal(err)
	}
	if p.Primary() != a || p.Len() != 2 {
		t.Fatal("primary must be the first device")
	}
}

func TestBroadcast_FailureDoesNotStopOthers(t *testing.T) {
	a := &stubDevice{addr: "a", err: errors.New("unreachable")}
	b := &stubDevice{addr: "b"}
	c := &stubDevice{addr: "c", err: errors.New("fault")}
	p, _ := NewPool(testLogger(), a, b, c)

	out := p.Broadcast(context.Background(), "stop", func(ctx context.Context, d domain.Device) error {
		return d.Stop(ctx)
	})

	if len(out) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].Device.Address() != want {
			t.Fatalf("outcome %d: expected %s, got %s", i, want, out[i].Device.Address())
		}
	}
	for _, d := range []*stubDevice{a, b, c} {
		if d.calls.Load() != 1 {
			t.Fatalf("device %s called %d times", d.addr, d.calls.Load())
		}
	}
	if out[1].Err != nil || out[0].Err == nil || out[2].Err == nil {
		t.Fatalf("unexpected errors: %+v", out)
	}
	if len(Failures(out)) != 2 || AllFailed(out) {
		t.Fatal("expected two failures and one success")
	}
}

func TestBroadcast_RunsConcurrently(t *testing.T) {
	var devs []domain.Device
	for _, addr := range []string{"a", "b", "c", "d"} {
		devs = append(devs, &stubDevice{addr: addr, delay: 100 * time.Millisecond})
	}
	p, _ := NewPool(testLogger(), devs...)

	start := time.Now()
	p.Broadcast(context.Background(), "stop", func(ctx context.Context, d domain.Device) error {
		return d.Stop(ctx)
	})
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("fan-out looks sequential: %v", elapsed)
	}
}

func TestCollect_FirstSuccessPrefersPrimary(t *testing.T) {
	a := &stubDevice{addr: "primary"}
	b := &stubDevice{addr: "b"}
	p, _ := NewPool(testLogger(), a, b)

	res := Collect(context.Background(), p, "enqueue", func(ctx context.Context, d domain.Device) (domain.EnqueueResult, error) {
		return d.Enqueue(ctx, "spotify:track:x")
	})
	first, ok := FirstSuccess(res)
	if !ok || first.Device != a || first.Value.FirstTrackNumberEnqueued != len("primary") {
		t.Fatalf("unexpected first success: %+v", first)
	}

	a.err = errors.New("down")
	res = Collect(context.Background(), p, "enqueue", func(ctx context.Context, d domain.Device) (domain.EnqueueResult, error) {
		return d.Enqueue(ctx, "spotify:track:x")
	})
	if first, ok = FirstSuccess(res); !ok || first.Device != b {
		t.Fatalf("expected fallback to b, got %+v", first)
	}

	b.err = errors.New("down")
	res = Collect(context.Background(), p, "enqueue", func(ctx context.Context, d domain.Device) (domain.EnqueueResult, error) {
		return d.Enqueue(ctx, "spotify:track:x")
	})
	if _, ok = FirstSuccess(res); ok || !AllFailed(res) {
		t.Fatal("expected total failure")
	}
}
