package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"camsnap/internal/models"

	"github.com/gorilla/websocket"
)

const DefaultRetryDelay = 5 * time.Second

// Relay forwards saved snapshots to a remote websocket endpoint and logs
// its acknowledgements. It reconnects until stopped.
type Relay struct {
	serverURL  string
	retryDelay time.Duration

	input chan models.Snapshot

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}

	logger *slog.Logger
}

func NewRelay(host string, retryDelay time.Duration, logger *slog.Logger) *Relay {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		serverURL:  u.String(),
		retryDelay: retryDelay,
		input:      make(chan models.Snapshot, 5),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (r *Relay) Start() {
	go r.runLoop()
}

// Stop ends the connection loop and waits for it to exit.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	<-r.done
}

// Publish queues a snapshot. It drops the snapshot when the queue is full.
func (r *Relay) Publish(snap models.Snapshot) {
	select {
	case r.input <- snap:
	default:
		r.logger.Warn("relay queue full, snapshot dropped", "name", snap.Name)
	}
}

func (r *Relay) runLoop() {
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-r.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-r.stopChan:
			return
		default:
		}

		r.logger.Info("connecting to relay server", "url", r.serverURL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.serverURL, nil)

		if err != nil {
			r.logger.Warn("relay connection failed", "error", err, "retry_in", r.retryDelay)
			select {
			case <-r.stopChan:
				return
			case <-time.After(r.retryDelay):
			}
			continue
		}

		r.logger.Info("connected to relay server")

		if stopped := r.serve(conn); stopped {
			return
		}
	}
}

// serve pumps one connection until it fails or the relay is stopped.
func (r *Relay) serve(conn *websocket.Conn) bool {
	errChan := make(chan error, 2)
	connDone := make(chan struct{})
	defer conn.Close()

	go func() {
		for {
			select {
			case <-connDone:
				return
			case snap := <-r.input:
				if err := conn.WriteMessage(websocket.BinaryMessage, snap.Data); err != nil {
					errChan <- err
					return
				}
				r.logger.Debug("snapshot relayed", "name", snap.Name, "bytes", len(snap.Data))
			}
		}
	}()

	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}

			var ack models.RelayAck
			if err := json.Unmarshal(message, &ack); err != nil {
				r.logger.Warn("relay ack decode", "error", err)
				continue
			}

			r.logger.Info("relay ack", "name", ack.Name, "bytes", ack.Bytes, "status", ack.Status)
		}
	}()

	select {
	case <-r.stopChan:
		close(connDone)
		return true
	case err := <-errChan:
		close(connDone)
		r.logger.Warn("relay connection lost", "error", err)
		return false
	}
}
