package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.calls++
	return s.err
}

func TestProtectedNotifierOpensAfterThreshold(t *testing.T) {
	inner := &stubNotifier{err: errors.New("smtp down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := n.Send(ctx, "a@example.com", "s", "b"); err == nil {
			t.Fatal("expected send error")
		}
	}

	// circuit is open now, inner must not be reached
	err := n.Send(ctx, "a@example.com", "s", "b")

	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3", inner.calls)
	}
}

func TestProtectedNotifierRecoversAfterCooldown(t *testing.T) {
	inner := &stubNotifier{err: errors.New("smtp down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	ctx := context.Background()

	_ = n.Send(ctx, "a@example.com", "s", "b") // opens the circuit

	time.Sleep(20 * time.Millisecond)

	inner.err = nil // provider is back

	if err := n.Send(ctx, "a@example.com", "s", "b"); err != nil {
		t.Fatalf("half-open trial should pass: %v", err)
	}

	// closed again, calls flow through
	if err := n.Send(ctx, "a@example.com", "s", "b"); err != nil {
		t.Fatalf("closed circuit should pass: %v", err)
	}
}

func TestProtectedNotifierSuccessResetsFailures(t *testing.T) {
	inner := &stubNotifier{}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	ctx := context.Background()

	inner.err = errors.New("blip")
	_ = n.Send(ctx, "a@example.com", "s", "b")

	inner.err = nil
	if err := n.Send(ctx, "a@example.com", "s", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inner.err = errors.New("blip")
	_ = n.Send(ctx, "a@example.com", "s", "b")

	// still below threshold thanks to the reset, circuit stays closed
	if err := n.Send(ctx, "a@example.com", "s", "b"); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit opened despite interleaved success")
	}
}
