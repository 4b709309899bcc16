package http

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"tubequiz/internal/domain"
)

// WSHandler streams pipeline stage transitions to the client while a quiz is
// being built, then delivers the finished quiz over the same connection. The
// transcription fallback can take minutes, so a fire-and-poll REST flow would
// leave the user staring at nothing.
type WSHandler struct {
	service  SessionAPI
	upgrader websocket.Upgrader
}

func NewWSHandler(service SessionAPI) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type stagePayload struct {
	Stage string `json:"stage"`
}

// ServeWS upgrades the request and runs the pipeline for the url query
// parameter. Closing the connection cancels the pipeline, including an
// in-flight transcription poll.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	cfg := configFromQuery(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The client sends nothing; the read loop only detects disconnects so the
	// pipeline stops instead of leaking a poll loop.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	observe := func(stage domain.Stage) {
		select {
		case send <- outboundMessage[any]{Type: "stage", Payload: stagePayload{Stage: string(stage)}}:
		case <-ctx.Done():
		}
	}

	session, err := h.service.CreateSession(ctx, rawURL, cfg, observe)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	} else {
		send <- outboundMessage[any]{Type: "quiz", Payload: newSessionView(session)}
	}
	close(send)
	<-writerDone
}

func configFromQuery(r *http.Request) domain.GenerationConfig {
	cfg := domain.GenerationConfig{}
	if raw := r.URL.Query().Get("numQuestions"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.NumQuestions = n
		}
	}
	if raw := r.URL.Query().Get("mcqRatio"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.MCQRatio = &f
		}
	}
	return cfg
}
