package bridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scripted replays canned results in order.
type scripted struct {
	results   []Result
	errs      []error
	calls     int
	connected bool
}

func (s *scripted) Send(_ context.Context, _ Command, _ time.Duration) (Result, error) {
	i := s.calls
	s.calls++
	var res Result
	var err error
	if i < len(s.results) {
		res = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return res, err
}

func (s *scripted) Connected() bool { return s.connected }

func (s *scripted) WaitForConnection(context.Context, time.Duration) error {
	if !s.connected {
		return ErrDisconnected
	}
	return nil
}

func TestAuthGateSuspendsUntilResume(t *testing.T) {
	inner := &scripted{
		results: []Result{
			{Status: StatusOK},
			{Status: StatusAuthRequired},
			{Status: StatusOK},
		},
		errs:      []error{nil, nil, nil},
		connected: true,
	}
	gate := NewAuthGate(inner)
	ctx := context.Background()

	if _, err := gate.Send(ctx, Command{Action: "navigate"}, time.Second); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := gate.Send(ctx, Command{Action: "click"}, time.Second); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("auth_required result should map to ErrAuthRequired, got %v", err)
	}
	if !gate.Waiting() {
		t.Fatal("gate should be waiting after auth_required")
	}

	// Suspended: inner must not be called again.
	before := inner.calls
	if _, err := gate.Send(ctx, Command{Action: "click"}, time.Second); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("suspended send should fail with ErrAuthRequired, got %v", err)
	}
	if inner.calls != before {
		t.Fatal("suspended gate must not forward commands")
	}

	gate.Resume()
	if gate.Waiting() {
		t.Fatal("gate should not be waiting after Resume")
	}
	if _, err := gate.Send(ctx, Command{Action: "click"}, time.Second); err != nil {
		t.Fatalf("send after resume: %v", err)
	}
}

func TestTimeoutIsDistinguishable(t *testing.T) {
	inner := &scripted{errs: []error{ErrTimeout}, connected: true}
	gate := NewAuthGate(inner)
	_, err := gate.Send(context.Background(), Command{Action: "scroll"}, time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if errors.Is(err, ErrDisconnected) {
		t.Fatal("timeout must not look like a disconnect")
	}
}

func TestUnavailable(t *testing.T) {
	var b Unavailable
	if b.Connected() {
		t.Fatal("Unavailable should not report connected")
	}
	if _, err := b.Send(context.Background(), Command{Action: "navigate"}, time.Second); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("err = %v, want ErrDisconnected", err)
	}
}
