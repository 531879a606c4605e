package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeHTTPServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns atomic.Int32
}

func newFakeHTTPServer(listenErr error) *fakeHTTPServer {
	return &fakeHTTPServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := newFakeHTTPServer(nil)
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if server.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times", server.shutdowns.Load())
	}
}

func TestHTTPServiceListenFailure(t *testing.T) {
	svc := NewHTTPService(newFakeHTTPServer(errors.New("address in use")), time.Second)

	err := svc.Serve(context.Background())
	if err == nil || err.Error() != "http server failed: address in use" {
		t.Errorf("Serve = %v", err)
	}
}

type countingPruner struct {
	calls atomic.Int32
	n     int
	err   error
}

func (p *countingPruner) Prune() int {
	p.calls.Add(1)
	return p.n
}

type countingCache struct {
	countingPruner
}

func (c *countingCache) Prune(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestJanitorSweep(t *testing.T) {
	results := &countingPruner{n: 2}
	cache := &countingCache{countingPruner{n: 1, err: errors.New("db down")}}
	j := NewJanitor("", results, cache, zaptest.NewLogger(t))

	j.Sweep(context.Background())

	if results.calls.Load() != 1 || cache.calls.Load() != 1 {
		t.Errorf("calls: results %d cache %d", results.calls.Load(), cache.calls.Load())
	}
	if j.schedule != DefaultJanitorSchedule {
		t.Errorf("schedule = %q", j.schedule)
	}
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	results := &countingPruner{}
	j := NewJanitor("@every 1s", results, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	if err := j.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v", err)
	}
	if results.calls.Load() < 1 {
		t.Error("janitor never ran")
	}
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	j := NewJanitor("every now and then", &countingPruner{}, nil, zaptest.NewLogger(t))
	if err := j.Serve(context.Background()); err == nil {
		t.Error("expected a schedule error")
	}
}

func TestTreeRunsServices(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second}, zaptest.NewLogger(t))
	server := newFakeHTTPServer(nil)
	tree.AddFrontend(NewHTTPService(server, time.Second))
	results := &countingPruner{}
	tree.AddMaintenance(NewJanitor("@every 1s", results, nil, zaptest.NewLogger(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
	if server.shutdowns.Load() != 1 {
		t.Errorf("http server shutdowns = %d", server.shutdowns.Load())
	}
	if results.calls.Load() < 1 {
		t.Error("janitor never ran")
	}
}
