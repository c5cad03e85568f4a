package loader

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/factory"
	"github.com/ValentinKolb/dLoad/lib/random"
	"github.com/ValentinKolb/dLoad/lib/store/lstore"
	"sync"
	"testing"
	"time"
)

// scriptedSource replays a fixed sequence of snapshots, repeating the last one
type scriptedSource struct {
	mu    sync.Mutex
	steps []Progress
	err   error
}

func (s *scriptedSource) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	return pr
}

func (s *scriptedSource) Err() error {
	return s.err
}

// TestMonitorCompletes tests that 100 percent is reported exactly once
func TestMonitorCompletes(t *testing.T) {
	src := &scriptedSource{steps: []Progress{
		{State: StateConnecting},
		{State: StateWriting, Percent: 30},
		{State: StateWriting, Percent: 70},
		{State: StateReconciling, Percent: 100},
		{State: StateDone, Percent: 100},
	}}

	var reported []int
	err := Monitor(context.Background(), src, time.Millisecond, func(pr Progress) {
		reported = append(reported, pr.Percent)
	})
	if err != nil {
		t.Fatalf("Monitor failed: %v", err)
	}

	want := []int{0, 30, 70, 100}
	if len(reported) != len(want) {
		t.Fatalf("reported %v, want %v", reported, want)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Errorf("reported %v, want %v", reported, want)
			break
		}
	}
}

// TestMonitorFailure tests that the job failure ends monitoring
func TestMonitorFailure(t *testing.T) {
	cause := common.NewError(common.ErrCWrite, "disk full")
	src := &scriptedSource{
		steps: []Progress{{State: StateWriting, Percent: 10}, {State: StateFailed, Percent: 10}},
		err:   cause,
	}

	err := Monitor(context.Background(), src, time.Millisecond, func(Progress) {})
	if !errors.Is(err, common.ErrWrite) {
		t.Errorf("Monitor error = %v, want WriteError", err)
	}
}

// TestMonitorCancel tests that cancelling the context ends monitoring
func TestMonitorCancel(t *testing.T) {
	src := &scriptedSource{steps: []Progress{{State: StateWriting, Percent: 50}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Monitor(ctx, src, time.Millisecond, func(Progress) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Monitor error = %v, want context.DeadlineExceeded", err)
	}
}

// TestMonitorPipeline tests monitoring a running pipeline
func TestMonitorPipeline(t *testing.T) {
	p := New(testConfig(), lstore.NewLocalStore(), factory.NewInvoiceFactory(random.NewSeeded(1)))

	var (
		wg         sync.WaitGroup
		monitorErr error
		last       = -1
		hundreds   int
		decreasing bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitorErr = Monitor(context.Background(), p, time.Millisecond, func(pr Progress) {
			if pr.Percent < last {
				decreasing = true
			}
			if pr.Percent == 100 {
				hundreds++
			}
			last = pr.Percent
		})
	}()

	res, err := p.Run(context.Background(), 500)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wg.Wait()

	if monitorErr != nil {
		t.Errorf("Monitor failed: %v", monitorErr)
	}
	if hundreds != 1 {
		t.Errorf("100 percent reported %d times, want 1", hundreds)
	}
	if decreasing {
		t.Errorf("progress decreased")
	}
	if res.Stored != 500 {
		t.Errorf("stored %d, want 500", res.Stored)
	}
}
