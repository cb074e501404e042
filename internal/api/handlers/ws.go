package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/stockscope/internal/aggregate"
	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/pkg/logger"
)

// MessageFinancialSummary requests one aggregate computation
const MessageFinancialSummary = "financialSummary"

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
	wsBusyMessage  = "Previous message still processing"
)

// WSMessage is one inbound push channel message
type WSMessage struct {
	Type              string `json:"type"`
	MarketCapCategory string `json:"marketCapCategory"`
}

// WSHandler serves the push channel. Every message triggers exactly one
// computation and one reply; nothing is kept between messages.
// One message may wait behind the one in flight; any further message is
// answered with a busy error so the reader keeps watching for disconnects.
type WSHandler struct {
	summary  *aggregate.Service
	upgrader websocket.Upgrader
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewWSHandler creates a new push channel handler
func NewWSHandler(summary *aggregate.Service, allowedOrigin string, reg *metrics.Registry, log *logger.Logger) *WSHandler {
	return &WSHandler{
		summary: summary,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		metrics: reg,
		logger:  log.WithComponent("ws"),
	}
}

// ServeWS upgrades the connection and answers messages until it closes
// GET /ws
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()

	conn.SetReadLimit(wsReadLimit)

	// 연결이 닫히면 진행 중인 집계도 취소
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	inbox := make(chan []byte, 1)
	go func() {
		defer cancel()
		defer close(inbox)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.WithError(err).Debug("WebSocket read failed")
				}
				return
			}
			select {
			case inbox <- data:
			default:
				if err := write(ErrorResponse{Error: wsBusyMessage}); err != nil {
					return
				}
			}
		}
	}()

	for data := range inbox {
		if err := write(h.handle(ctx, data)); err != nil {
			h.logger.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
}

func (h *WSHandler) handle(ctx context.Context, data []byte) interface{} {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ErrorResponse{Error: "Error handling message"}
	}

	if msg.Type != MessageFinancialSummary {
		return ErrorResponse{Error: "Unknown message type"}
	}

	category, err := contracts.ParseCategory(msg.MarketCapCategory)
	if err != nil {
		return ErrorResponse{Error: err.Error()}
	}

	summary, err := h.summary.Compute(ctx, category)
	switch {
	case err == nil:
		return summary
	case errors.Is(err, contracts.ErrTimeout):
		return ErrorResponse{Error: "financial summary timed out"}
	case ctx.Err() != nil:
		return ErrorResponse{Error: "Error handling message"}
	default:
		h.logger.WithError(err).WithField("category", string(category)).Error("Push channel summary failed")
		return ErrorResponse{Error: "Error handling message"}
	}
}
