package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"scalp-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Dashboard pushes are throttled so a burst of bars cannot flood a slow
// browser connection; intermediate updates are superseded, not queued.
const wsPushPerSecond = 10

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.Bus.SubscribeSet(100,
		events.EventSignalEmitted,
		events.EventPositionOpened,
		events.EventPartialExit,
		events.EventPositionClosed,
		events.EventBreadth,
	)
	defer unsub()

	limiter := rate.NewLimiter(rate.Limit(wsPushPerSecond), wsPushPerSecond)

	for msg := range stream {
		if !limiter.Allow() {
			continue // drop; the next snapshot supersedes this one
		}
		out := map[string]any{
			"topic":   string(msg.Event),
			"payload": msg.Payload,
			"ts":      time.Now().UnixMilli(),
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
