package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/interfaces"
	"github.com/ternarybob/dupremover/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The operator UI is served from another origin
	},
}

const wsWriteTimeout = 10 * time.Second

// WSMessage is the envelope for every frame pushed to a client
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RunGetter reads run snapshots
type RunGetter interface {
	Get(ctx context.Context, runID string) (*models.Run, error)
}

// WebSocketHandler streams run snapshots so clients do not have to poll
type WebSocketHandler struct {
	runs         RunGetter
	logger       arbor.ILogger
	pushInterval time.Duration
}

// NewWebSocketHandler creates a run status streamer
func NewWebSocketHandler(runs RunGetter, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	interval := 500 * time.Millisecond
	if config != nil && config.PushInterval.Duration() > 0 {
		interval = config.PushInterval.Duration()
	}
	return &WebSocketHandler{
		runs:         runs,
		logger:       logger,
		pushInterval: interval,
	}
}

// HandleRunStatus handles GET /ws/task_status/{id}. A snapshot is pushed
// whenever the run changes, at most once per push interval, until the run
// reaches a terminal status.
func (h *WebSocketHandler) HandleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := PathParam(r.URL.Path, "/ws/task_status/")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read messages from client so a disconnect cancels the stream
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug().Err(err).Msg("WebSocket client closed")
				}
				return
			}
		}
	}()

	h.logger.Debug().Str("run_id", runID).Msg("Run status stream opened")

	limiter := rate.NewLimiter(rate.Every(h.pushInterval), 1)
	var last *models.Run

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		run, err := h.runs.Get(ctx, runID)
		if err != nil {
			if errors.Is(err, interfaces.ErrRunNotFound) || runID == "" {
				h.send(conn, WSMessage{Type: "error", Payload: map[string]string{"status": "not_found"}})
			} else {
				h.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to read run for stream")
				h.send(conn, WSMessage{Type: "error", Payload: map[string]string{"status": "error", "message": err.Error()}})
			}
			h.close(conn)
			return
		}

		if changed(last, run) {
			if err := h.send(conn, WSMessage{Type: "run_status", Payload: run}); err != nil {
				h.logger.Debug().Err(err).Str("run_id", runID).Msg("Run status stream write failed")
				return
			}
			last = run
		}

		if run.Status.IsTerminal() {
			h.close(conn)
			return
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg WSMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg)
}

func (h *WebSocketHandler) close(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}

// changed reports whether a snapshot differs from the last one pushed
func changed(last, run *models.Run) bool {
	if last == nil {
		return true
	}
	return last.Status != run.Status ||
		last.Progress != run.Progress ||
		len(last.ConsoleLogs) != len(run.ConsoleLogs) ||
		last.CurrentMember != run.CurrentMember ||
		last.CurrentFamily != run.CurrentFamily
}
