package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracker/internal/common/ws"
	"fleet-tracker/internal/domain/geo"
)

func dialViewer(t *testing.T, view *LiveView) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(view)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestLiveView_SnapshotThenFrames(t *testing.T) {
	hub := ws.NewHub(nil)
	defer hub.Close()
	view := NewLiveView(hub, nil, func() any { return map[string]any{"samples": 0} })
	conn := dialViewer(t, view)

	snap := readFrame(t, conn)
	assert.Equal(t, FrameSnapshot, snap.Type)
	assert.Equal(t, map[string]any{"samples": float64(0)}, snap.State)

	pos := geo.Coordinate{Lat: 40.7829, Lng: -73.9654}
	view.OnPositionUpdate(pos)
	view.OnPolylineUpdate([]geo.Coordinate{pos, pos})
	view.RequestCenterOn(pos, 18, 2*time.Second)

	f := readFrame(t, conn)
	assert.Equal(t, FramePosition, f.Type)
	require.NotNil(t, f.Position)
	assert.Equal(t, pos, *f.Position)

	f = readFrame(t, conn)
	assert.Equal(t, FramePolyline, f.Type)
	assert.Len(t, f.Polyline, 2)

	f = readFrame(t, conn)
	assert.Equal(t, FrameCenter, f.Type)
	assert.Equal(t, 18.0, f.Zoom)
	assert.Equal(t, int64(2000), f.DurationMS)
}

func TestLiveView_DisconnectUnregisters(t *testing.T) {
	hub := ws.NewHub(nil)
	defer hub.Close()
	view := NewLiveView(hub, nil, func() any { return "ready" })
	conn := dialViewer(t, view)

	readFrame(t, conn)
	assert.Len(t, hub.ListConnected(), 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	assert.Eventually(t, func() bool { return len(hub.ListConnected()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
