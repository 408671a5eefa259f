package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestNewRefreshJobInterval(t *testing.T) {
	job := NewRefreshJob(testTracer, &stubRefresher{}, 2)
	if job.interval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", job.interval)
	}
	if def := NewRefreshJob(testTracer, &stubRefresher{}, 0); def.interval != time.Minute {
		t.Fatalf("expected 60s default, got %v", def.interval)
	}
}

func TestRefreshJobRunsImmediately(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	job := NewRefreshJob(testTracer, stub, 3600)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() == 1 })
	cancel()
	<-done
}

func TestRefreshJobSkipsWhileRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stub := &stubRefresher{block: release}
	job := NewRefreshJob(testTracer, stub, 3600)

	if !job.launch(context.Background(), "test") {
		t.Fatal("expected first launch to start a cycle")
	}
	eventually(t, job.Running)
	if job.launch(context.Background(), "test") {
		t.Fatal("expected second launch to be skipped")
	}
	if job.TriggerNow() {
		t.Fatal("expected trigger to be refused while a cycle runs")
	}

	close(release)
	job.wg.Wait()
	if job.Running() {
		t.Fatal("expected gate to be released")
	}
	if stub.calls.Load() != 1 {
		t.Fatalf("expected exactly one cycle, got %d", stub.calls.Load())
	}
}

func TestRefreshJobTriggerNow(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	job := NewRefreshJob(testTracer, stub, 3600)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() == 1 && !job.Running() })
	if !job.TriggerNow() {
		t.Fatal("expected trigger to be accepted")
	}
	eventually(t, func() bool { return stub.calls.Load() == 2 })
	cancel()
	<-done
}

func TestRefreshJobDisabledSkipsTicks(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	job := NewRefreshJob(testTracer, stub, 3600)
	job.interval = 5 * time.Millisecond
	var enabled atomic.Bool
	job.SetEnabled(enabled.Load)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() == 1 && !job.Running() })
	time.Sleep(50 * time.Millisecond)
	if got := stub.calls.Load(); got != 1 {
		t.Fatalf("expected ticks to be skipped, got %d cycles", got)
	}

	if !job.TriggerNow() {
		t.Fatal("expected manual trigger to run while ticks are disabled")
	}
	eventually(t, func() bool { return stub.calls.Load() == 2 })

	enabled.Store(true)
	eventually(t, func() bool { return stub.calls.Load() >= 4 })
	cancel()
	<-done
}

func TestRefreshJobFollowsScheduleChanges(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	job := NewRefreshJob(testTracer, stub, 3600)
	var interval atomic.Int64
	interval.Store(int64(time.Hour))
	job.SetSchedule(func() time.Duration { return time.Duration(interval.Load()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() == 1 && !job.Running() })
	interval.Store(int64(5 * time.Millisecond))
	if !job.TriggerNow() {
		t.Fatal("expected trigger to be accepted")
	}
	eventually(t, func() bool { return stub.calls.Load() >= 4 })
	cancel()
	<-done
	if job.interval != 5*time.Millisecond {
		t.Fatalf("expected the new interval to be in force, got %v", job.interval)
	}
}

func TestRefreshJobStartWaitsForInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stub := &stubRefresher{block: release, err: errors.New("provider down")}
	job := NewRefreshJob(testTracer, stub, 3600)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, job.Running)
	cancel()

	select {
	case <-done:
		t.Fatal("Start returned before the in-flight cycle finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after the cycle finished")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

type stubRefresher struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) error {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.err
}
