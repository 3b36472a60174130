package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleet-tracker/internal/common/contextx"
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/common/ws"
	"fleet-tracker/internal/domain/geo"
)

const (
	FramePosition = "position"
	FramePolyline = "polyline"
	FrameCenter   = "center"
	FrameSnapshot = "snapshot"

	readTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Frame is one message pushed to live viewers.
type Frame struct {
	Type       string           `json:"type"`
	Position   *geo.Coordinate  `json:"position,omitempty"`
	Polyline   []geo.Coordinate `json:"polyline,omitempty"`
	Zoom       float64          `json:"zoom,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
	State      any              `json:"state,omitempty"`
}

// LiveView is a rendering surface that mirrors every position, polyline and
// center command to the connected browsers.
type LiveView struct {
	hub      *ws.Hub
	logger   *log.Logger
	snapshot func() any
}

// NewLiveView broadcasts through hub. snapshot, when set, is sent to each
// viewer right after it connects.
func NewLiveView(hub *ws.Hub, logger *log.Logger, snapshot func() any) *LiveView {
	if logger == nil {
		logger = log.Nop()
	}
	return &LiveView{hub: hub, logger: logger, snapshot: snapshot}
}

func (v *LiveView) OnPositionUpdate(pos geo.Coordinate) {
	v.broadcast(Frame{Type: FramePosition, Position: &pos})
}

func (v *LiveView) OnPolylineUpdate(line []geo.Coordinate) {
	if line == nil {
		line = []geo.Coordinate{}
	}
	v.broadcast(Frame{Type: FramePolyline, Polyline: line})
}

func (v *LiveView) RequestCenterOn(pos geo.Coordinate, zoom float64, d time.Duration) {
	v.broadcast(Frame{Type: FrameCenter, Position: &pos, Zoom: zoom, DurationMS: d.Milliseconds()})
}

func (v *LiveView) broadcast(f Frame) {
	if err := v.hub.Broadcast(f); err != nil {
		v.logger.Error(context.Background(), "ws_broadcast_failed", "Failed to encode live frame", err,
			map[string]any{"type": f.Type})
	}
}

// ServeHTTP upgrades the request and keeps the viewer registered until the
// browser goes away. Viewers only listen; inbound frames are discarded.
func (v *LiveView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := contextx.WithNewRequestID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Error(ctx, "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	id := uuid.NewString()
	v.hub.Add(id, conn)
	defer v.hub.Remove(id)

	if v.snapshot != nil {
		if err := v.hub.Send(id, Frame{Type: FrameSnapshot, State: v.snapshot()}); err != nil {
			v.logger.Error(ctx, "ws_snapshot_failed", "Failed to encode snapshot", err, nil)
		}
	}
	v.logger.Info(ctx, "ws_connected", "Live viewer connected", map[string]any{"viewer_id": id})

	conn.SetReadLimit(1 << 16)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.logger.Warn(ctx, "ws_unexpected_close", "Live viewer connection closed unexpectedly",
					map[string]any{"viewer_id": id, "error": err.Error()})
			} else {
				v.logger.Info(ctx, "ws_connection_closed", "Live viewer disconnected", map[string]any{"viewer_id": id})
			}
			return
		}
	}
}
