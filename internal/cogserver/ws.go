package cogserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
)

// wsChatHandler wraps the SSE chat stream in a websocket duplex
// channel for browser clients that prefer a socket to SSE, adapting
// internal/server/server.go's wsProxyHandler — here there is nothing
// to reverse-proxy to, since the cognitive graph runs in-process, so
// each inbound text message is decoded as a chatRequest and answered
// with one JSON response message rather than proxied bytes.
func (s *Server) wsChatHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if len(req.Messages) == 0 || !hasUserMessage(req.Messages) {
			conn.WriteJSON(map[string]string{"error": "no user message present"})
			continue
		}

		state := &cognition.RequestState{
			Messages:      req.Messages,
			UserID:        req.UserID,
			Temperature:   req.Temperature,
			MaxTokens:     req.MaxTokens,
			ModelOverride: req.Model,
		}
		out := s.graph.Run(r.Context(), state)
		s.recordTrajectoryFromState(out, req)

		resp := chatResponse{
			ID:      "chatcmpl-" + uuid.NewString(),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   out.ModelName,
			Choices: []chatChoice{{
				Index:        0,
				Message:      cognition.Message{Role: "assistant", Content: out.Response},
				FinishReason: "stop",
			}},
			Usage:         out.Usage,
			RoutingReason: out.RoutingReason,
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}
