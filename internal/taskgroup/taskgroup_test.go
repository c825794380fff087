package taskgroup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunIsolatesFailures(t *testing.T) {
	var ran atomic.Int32
	results := Run(context.Background(), 4, 0, func(ctx context.Context, i int) error {
		ran.Add(1)
		switch i {
		case 1:
			return errors.New("transport down")
		case 2:
			panic("unexpected shape")
		}
		return nil
	})

	if ran.Load() != 4 {
		t.Fatalf("Expected all 4 tasks to run, got %d", ran.Load())
	}
	if results.Failed() != 2 {
		t.Errorf("Expected 2 failures, got %d", results.Failed())
	}
	if results[0] != nil || results[3] != nil {
		t.Errorf("Expected tasks 0 and 3 to succeed, got %v", results)
	}
	var pe *PanicError
	if !errors.As(results[2], &pe) {
		t.Errorf("Expected PanicError for task 2, got %v", results[2])
	}
}

func TestRunRespectsLimit(t *testing.T) {
	var active, peak atomic.Int32
	Run(context.Background(), 10, 2, func(ctx context.Context, i int) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestEachEmpty(t *testing.T) {
	results := Each(context.Background(), []string(nil), 0, func(ctx context.Context, s string) error {
		t.Error("fn should not be called")
		return nil
	})
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
