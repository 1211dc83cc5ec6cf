package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"verbtutor/internal/logger"
	"verbtutor/internal/presenter"
	"verbtutor/internal/tutor"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	History json.RawMessage `json:"history,omitempty"`
}

type chatWSOutbound struct {
	Type    string          `json:"type"`
	View    *presenter.View `json:"view,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ChatHandler serves one websocket per learner. A connection attaches to the
// session named by ?session_id= when it still exists, otherwise it opens and
// starts a new one.
type ChatHandler struct {
	reg *tutor.Registry
	log *logger.Logger
}

func NewChatHandler(reg *tutor.Registry, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{reg: reg, log: log}
}

func (h *ChatHandler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		h.log.Warn("chat ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	p, resumed := h.attach(strings.TrimSpace(r.URL.Query().Get("session_id")))
	var first presenter.View
	if resumed {
		first = p.View()
	} else {
		first = p.OnRestart(ctx)
	}
	pushView(writeCh, first)

	for {
		// A generation round trip can outlast the pong window.
		if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
			cancel()
			<-writerDone
			return
		}
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "":
			pushChatWS(writeCh, chatWSOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		case "ping":
			pushChatWS(writeCh, chatWSOutbound{Type: "pong"})
		case "submit":
			pushView(writeCh, p.OnLearnerSubmit(ctx, in.Text))
		case "restart":
			pushView(writeCh, p.OnRestart(ctx))
		case "retry":
			pushView(writeCh, p.OnRetry(ctx))
		case "restore":
			v, err := p.Restore(h.reg.SystemPrompt(), in.History)
			if err != nil {
				pushChatWS(writeCh, chatWSOutbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
				continue
			}
			pushView(writeCh, v)
		default:
			pushChatWS(writeCh, chatWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + msgType})
		}
	}
}

func (h *ChatHandler) attach(id string) (*presenter.Presenter, bool) {
	if id != "" {
		s, err := h.reg.Get(id)
		if err == nil {
			return presenter.New(s, h.log), true
		}
		if !errors.Is(err, tutor.ErrSessionNotFound) {
			h.log.Warn("session lookup failed", "session_id", id, "error", err)
		}
	}
	return presenter.New(h.reg.Open(), h.log), false
}

func pushView(writeCh chan chatWSOutbound, v presenter.View) {
	pushChatWS(writeCh, chatWSOutbound{Type: "view", View: &v})
}

// pushChatWS never blocks; when the queue is full the oldest frame is dropped.
func pushChatWS(writeCh chan chatWSOutbound, out chatWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
