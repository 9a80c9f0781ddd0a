package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/svcctx"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = 30 * time.Second

	// DefaultStreamInterval is how often the store is polled for changes.
	DefaultStreamInterval = 500 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamEndpoint handles GET /api/v1/jobs/{id}/stream. It upgrades to a
// websocket and pushes a status snapshot whenever the job changes, closing
// once the job is completed or failed.
type StreamEndpoint struct {
	Interval time.Duration
}

var _ api.Endpoint = (*StreamEndpoint)(nil)

func (e *StreamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/jobs/{id}/stream", e.handler
}

func (e *StreamEndpoint) RequiresInit() bool { return true }

func (e *StreamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := loadJob(w, r)
	if !ok {
		return
	}
	logger := svcctx.LoggerFrom(r.Context()).With("job_id", job.ID)
	store := svcctx.StoreFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The client sends nothing; reading only services pongs and close frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := e.Interval
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()
	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	last := job.Snapshot()
	if err := writeSnapshot(conn, last); err != nil {
		return
	}
	for !last.Status.Terminal() {
		select {
		case <-gone:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			current, err := store.Get(r.Context(), job.ID)
			if err != nil {
				logger.Warn("stream lookup failed", "error", err)
				closeStream(conn, websocket.CloseInternalServerErr, "job lookup failed")
				return
			}
			snap := current.Snapshot()
			if snap == last {
				continue
			}
			last = snap
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		}
	}
	closeStream(conn, websocket.CloseNormalClosure, string(last.Status))
}

func writeSnapshot(conn *websocket.Conn, snap jobs.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(snap)
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}

// streamURL rewrites an http(s) server URL to the websocket stream URL.
func streamURL(serverURL, id string) string {
	u := strings.TrimSuffix(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/v1/jobs/" + id + "/stream"
}

func (e *StreamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow the progress of an analysis until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), streamURL(getServerURL(), args[0]), nil)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("stream failed (%d): %w", resp.StatusCode, err)
				}
				return fmt.Errorf("stream failed: %w", err)
			}
			defer conn.Close()

			var last jobs.Snapshot
			for {
				var snap jobs.Snapshot
				if err := conn.ReadJSON(&snap); err != nil {
					var ce *websocket.CloseError
					if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
						break
					}
					return fmt.Errorf("stream interrupted: %w", err)
				}
				last = snap
				fmt.Printf("%-10s %3d%%  scene %d/%d\n", snap.Status, snap.Progress, snap.CurrentScene, snap.TotalScenes)
			}
			if last.Status == jobs.StatusError {
				return fmt.Errorf("analysis failed: %s", last.Error)
			}
			return nil
		},
	}
}
