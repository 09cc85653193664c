package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/screening"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket, runs the whole batch through the
// engine, and then sends each symbol's result as its own frame; no frame
// is sent before the batch completes.
// The client sends one {symbols, timeframe, limit} request message and
// receives a stream of {symbol, result} frames followed by a final
// {done: true, stats} frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("screener: websocket upgrade failed")
		return
	}
	defer conn.Close()

	var body runRequestBody
	if err := conn.ReadJSON(&body); err != nil {
		_ = conn.WriteJSON(errorBody{Error: "VALIDATION_ERROR", Message: "malformed stream request"})
		return
	}

	req := screening.Request{
		Symbols:   body.Symbols,
		Timeframe: market.Timeframe(body.Timeframe),
		Limit:     body.Limit,
	}
	if err := req.Validate(); err != nil {
		_ = conn.WriteJSON(errorBody{Error: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	deadline := s.config.RequestDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), deadline)
	defer cancel()

	resp, err := s.engine.Run(ctx, req)
	if err != nil {
		_ = conn.WriteJSON(errorBody{Error: "INTERNAL_ERROR", Message: "screening run failed"})
		return
	}

	for _, res := range resp.Results {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(symbolResultToDTO(res)); err != nil {
			return
		}
	}
	_ = conn.WriteJSON(map[string]interface{}{"done": true, "stats": responseToDTO(resp).Stats})
}
