package safego

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logMu sync.Mutex

func captureDefaultLogger(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

type syncBuffer struct {
	b bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	logMu.Lock()
	defer logMu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	logMu.Lock()
	defer logMu.Unlock()
	return s.b.String()
}

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background job did not finish")
	}
}

func TestGo(t *testing.T) {
	done := make(chan struct{})
	var ran bool
	Go("expiry-notifier", func() {
		ran = true
		close(done)
	})
	waitFor(t, done)
	assert.True(t, ran)
}

func TestGo_PanicIsLoggedWithJobName(t *testing.T) {
	buf := captureDefaultLogger(t)

	done := make(chan struct{})
	Go("db-stats", func() {
		defer close(done)
		panic("boom")
	})
	waitFor(t, done)

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte(`"job":"db-stats"`))
	}, time.Second, 10*time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, `"panic":"boom"`)
	assert.Contains(t, out, "background job panicked")
}
