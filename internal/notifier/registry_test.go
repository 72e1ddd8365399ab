package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/metrics"
)

type mockNotifier struct {
	name       string
	sendCalled int
	last       core.EnhancedSignal
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, signal core.EnhancedSignal) error {
	m.sendCalled++
	m.last = signal
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil, nil)

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(nil, nil)

	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", n.Name())
	}

	// Non-existent notifier
	_, err = r.Get("nonexistent")
	if err == nil {
		t.Error("expected error for non-existent notifier")
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry(nil, nil)

	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "a" {
		t.Errorf("expected notifiers ordered by name, got %s first", all[0].Name())
	}
	if r.Len() != 2 {
		t.Errorf("expected Len 2, got %d", r.Len())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry(nil, metrics.NewRegistry())

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	signal := core.EnhancedSignal{Pair: "EURUSD", Action: "BUY", EnhancedConfidence: 0.82}
	errs := r.NotifyAll(context.Background(), signal)

	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}

	if mock1.sendCalled != 1 {
		t.Errorf("expected mock1.sendCalled = 1, got %d", mock1.sendCalled)
	}
	if mock2.sendCalled != 1 {
		t.Errorf("expected mock2.sendCalled = 1, got %d", mock2.sendCalled)
	}
	if mock1.last.Pair != "EURUSD" {
		t.Errorf("expected pair EURUSD, got %s", mock1.last.Pair)
	}
}

func TestRegistry_NotifyAll_WithFailure(t *testing.T) {
	r := NewRegistry(nil, nil)

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2", shouldFail: true}
	r.Register(mock1)
	r.Register(mock2)

	errs := r.NotifyAll(context.Background(), core.EnhancedSignal{Pair: "GBPUSD"})

	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
	err, ok := errs["n2"]
	if !ok {
		t.Fatal("expected error from n2")
	}
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected NOTIFIER_FAILED, got %v", err)
	}
	if mock1.sendCalled != 1 {
		t.Error("a failing notifier must not stop the others")
	}
}

func TestRegistry_NotifyAll_Empty(t *testing.T) {
	r := NewRegistry(nil, nil)
	if errs := r.NotifyAll(context.Background(), core.EnhancedSignal{}); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}
