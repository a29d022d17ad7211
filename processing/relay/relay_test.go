package relay

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"camsnap/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAckServer(t *testing.T, received chan<- []byte) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			received <- msg

			ack := models.RelayAck{Bytes: len(msg), Status: "ok"}
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

// logBuffer is written from the relay goroutines and read by the test.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) lines(msg string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(b.buf.String(), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func TestRelay_ForwardsSnapshotsAndLogsEveryAck(t *testing.T) {
	const total = 8

	received := make(chan []byte, 1)
	srv := newAckServer(t, received)

	logs := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := NewRelay(hostOf(srv), 10*time.Millisecond, logger)
	r.Start()
	defer r.Stop()

	for i := 0; i < total; i++ {
		payload := []byte{0xff, 0xd8, byte(i), 1, 2, 3}

		// the queue is drained only once connected, so publishing early is fine
		r.Publish(models.Snapshot{Name: "a.jpg", Data: payload})

		select {
		case got := <-received:
			assert.Equal(t, payload, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("server never received snapshot %d", i)
		}
	}

	require.Eventually(t, func() bool {
		return len(logs.lines("relay ack")) == total
	}, 5*time.Second, 10*time.Millisecond)

	for _, entry := range logs.lines("relay ack") {
		assert.Equal(t, "ok", entry["status"])
		assert.EqualValues(t, 6, entry["bytes"])
	}
}

func TestRelay_StopWhileServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := hostOf(srv)
	srv.Close()

	r := NewRelay(host, time.Hour, nil)
	r.Start()

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked during retry wait")
	}

	// a second Stop is harmless
	r.Stop()
}

func TestRelay_PublishDropsWhenFull(t *testing.T) {
	r := NewRelay("127.0.0.1:1", 0, nil)
	require.Equal(t, DefaultRetryDelay, r.retryDelay)

	for i := 0; i < cap(r.input)+3; i++ {
		r.Publish(models.Snapshot{Name: "x.jpg"})
	}
	assert.Len(t, r.input, cap(r.input))
}

func TestNewRelay_URL(t *testing.T) {
	r := NewRelay("localhost:8080", 0, nil)
	assert.Equal(t, "ws://localhost:8080/ws", r.serverURL)
}
