package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerStopsAllOnCancel(t *testing.T) {
	stopped := make(chan struct{}, 2)
	block := RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		stopped <- struct{}{}
		return nil
	})

	m := NewManager(block)
	m.Add(block)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	if len(stopped) != 2 {
		t.Errorf("%d servers stopped, want 2", len(stopped))
	}
}

func TestManagerFirstErrorCancelsOthers(t *testing.T) {
	boom := errors.New("listen: address in use")

	m := NewManager(
		RunnerFunc(func(context.Context) error { return boom }),
		RunnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}),
	)

	if err := m.Start(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Start = %v, want %v", err, boom)
	}
}
