package task

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockTask implements the Task interface for queue and pool tests
type mockTask struct {
	id     int64
	status TaskStatus
	execFn func(ctx context.Context) error
}

var mockTaskIDs IDAllocator

func newMockTask() *mockTask {
	return &mockTask{id: mockTaskIDs.Next(), status: TaskStatusPending}
}

func (m *mockTask) ID() int64          { return m.id }
func (m *mockTask) Type() string       { return "mock" }
func (m *mockTask) Status() TaskStatus { return m.status }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

// gate blocks every draw of the images it creates until it is opened.
type gate struct {
	started   chan struct{}
	startOnce sync.Once
	release   chan struct{}
	openOnce  sync.Once
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) open() {
	g.openOnce.Do(func() { close(g.release) })
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rendering to start")
	}
}

func (g *gate) factory(width, height int) fractal.Image {
	return &stubImage{gate: g}
}

// stubImage counts draws and encodes to a fixed payload.
type stubImage struct {
	gate    *gate
	panicOn bool

	mu    sync.Mutex
	draws int
}

func newStubImage(width, height int) fractal.Image {
	return &stubImage{}
}

func panickingImage(width, height int) fractal.Image {
	return &stubImage{panicOn: true}
}

func (i *stubImage) Line(x1, y1, x2, y2 float64) { i.draw() }
func (i *stubImage) Ellipse(cx, cy, w, h float64) { i.draw() }
func (i *stubImage) Arc(cx, cy, w, h, start, sweep float64) { i.draw() }
func (i *stubImage) EncodePNG(w io.Writer) error {
	_, err := w.Write([]byte("png"))
	return err
}

func (i *stubImage) draw() {
	if i.panicOn {
		panic("canvas exploded")
	}
	i.mu.Lock()
	i.draws++
	i.mu.Unlock()
	if i.gate != nil {
		i.gate.startOnce.Do(func() { close(i.gate.started) })
		<-i.gate.release
	}
}

// stubSink records writes instead of touching the filesystem.
type stubSink struct {
	mu      sync.Mutex
	err     error
	written []string
	removed []string
}

func (s *stubSink) WriteImage(ctx context.Context, img fractal.Image, dir, filename string, token *fractal.CancelToken) (string, error) {
	if token.Cancelled() {
		return "", fractal.ErrCancelled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(dir, filename)
	s.written = append(s.written, path)
	return path, nil
}

func (s *stubSink) RemoveImage(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return nil
}

func (s *stubSink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func testTree(iterations int) fractal.Tree {
	return fractal.Tree{
		Dimensions:    fractal.Dimensions{Width: 500, Height: 500, TotalIterations: iterations, PaddingHorizontal: 40, PaddingVertical: 40},
		Angle:         math.Pi / 3,
		ScalingFactor: 0.77,
	}
}

func testCircle(satellites int) fractal.Circle {
	return fractal.Circle{
		Dimensions:     fractal.Dimensions{Width: 700, Height: 500, TotalIterations: 4, PaddingHorizontal: 40, PaddingVertical: 40},
		SatelliteCount: satellites,
		ScalingFactor:  0.5,
		ZoomFactor:     0.2,
	}
}

func waitForComplete(t *testing.T, st *MockStatusStore, id int64) *Record {
	t.Helper()
	require.Eventually(t, func() bool {
		r := st.Get(id)
		return r != nil && r.Complete
	}, 5*time.Second, 5*time.Millisecond, "record %d never completed", id)
	return st.Get(id)
}
