package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
	"map-puzzle/internal/projection"
	"map-puzzle/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// InMessage：客户端指针事件；坐标为客户端坐标系
type InMessage struct {
	Type     string        `json:"type"`
	RegionID string        `json:"regionId,omitempty"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Rect     *session.Rect `json:"rect,omitempty"`
}

// 文档注释：指针事件 websocket
// 背景：输入 resize/down/move/up，输出 state/drag/drop/fact/error；每个连接一个读循环与一个写 goroutine，只有写 goroutine 写连接。
// 约束：由本连接发起的拖动在断开时通过 Teardown 归还监听。
type WSHandler struct {
	S *session.Session
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn("ws_upgrade_error", "err", err)
		return
	}
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	notices, unsubscribe := h.S.Subscribe(64)
	direct := make(chan session.Notice, 16)
	done := make(chan struct{})
	go h.writeLoop(conn, notices, direct, done)

	ctx := context.Background()
	if v, err := h.S.View(ctx); err == nil {
		direct <- session.Notice{Type: "state", Payload: v}
	}

	dragging := h.readLoop(ctx, conn, direct)

	if dragging {
		_ = h.S.Teardown(ctx)
	}
	unsubscribe()
	close(done)
	conn.Close()
}

// readLoop：返回断开时本连接是否仍在拖动
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, direct chan<- session.Notice) bool {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	dragging := false
	reply := func(n session.Notice) {
		select {
		case direct <- n:
		default:
		}
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.L().Debug("ws_closed", "err", err)
			return dragging
		}
		var m InMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			reply(errorNotice("invalid message"))
			continue
		}
		metrics.PointerEventsTotal.WithLabelValues(m.Type).Inc()
		p := projection.Point{X: m.X, Y: m.Y}
		switch m.Type {
		case "resize":
			if m.Rect == nil {
				reply(errorNotice("resize requires rect"))
				continue
			}
			if _, err := h.S.Resize(ctx, *m.Rect); err != nil {
				reply(errorNotice(err.Error()))
			}
		case "down":
			if err := h.S.PickUp(ctx, m.RegionID, p); err != nil {
				reply(errorNotice(err.Error()))
				continue
			}
			dragging = true
		case "move":
			_ = h.S.Move(ctx, p)
		case "up":
			_, _, err := h.S.Release(ctx, p)
			if err != nil {
				reply(errorNotice(err.Error()))
			}
			dragging = false
		default:
			reply(errorNotice("unknown message type " + m.Type))
		}
	}
}

func errorNotice(msg string) session.Notice {
	return session.Notice{Type: "error", Payload: map[string]string{"error": msg}}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, notices <-chan session.Notice, direct <-chan session.Notice, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	write := func(n session.Notice) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(n); err != nil {
			logger.L().Debug("ws_write_error", "err", err)
			return false
		}
		return true
	}
	for {
		select {
		case <-done:
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			if !write(n) {
				return
			}
		case n := <-direct:
			if !write(n) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
