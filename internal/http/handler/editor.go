package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"linkstudio/internal/editor"
	"linkstudio/internal/pagesync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 64 << 10
	eventQueue = 64
)

var errSlowClient = errors.New("client is not reading events")

// EditorHandler runs one editor.Session per websocket connection.
type EditorHandler struct {
	// Deps is copied per connection; its Engine is built from Sync.
	Deps editor.Deps
	Sync pagesync.Config
	// Origins allowed to open a session. Empty keeps the same-origin check.
	Origins []string
	Log     zerolog.Logger
}

func (h *EditorHandler) upgrader() websocket.Upgrader {
	up := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
	if len(h.Origins) > 0 {
		up.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(h.Origins, "*") || slices.Contains(h.Origins, origin)
		}
	}
	return up
}

// Serve upgrades the request. A ?token= authenticates the session before the
// first op; otherwise the client sends an auth op.
func (h *EditorHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.Deps.Pages == nil || h.Sync.Store == nil {
		writeError(w, h.Log, ErrUnconfigured)
		return
	}
	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered.
		h.Log.Debug().Err(err).Msg("websocket upgrade")
		return
	}

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)
	events := make(chan editor.Event, eventQueue)
	emit := func(ev editor.Event) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		select {
		case events <- ev:
		default:
			h.Log.Warn().Str("event", ev.Type).Msg("editor event queue full, dropping connection")
			cancel(errSlowClient)
		}
	}

	deps := h.Deps
	deps.Engine = pagesync.New(h.Sync)
	deps.Log = h.Log
	s := editor.NewSession(deps, emit)
	defer s.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.writeLoop(gctx, conn, events) })
	g.Go(func() error { return h.readLoop(gctx, conn, s, emit, r.URL.Query().Get("token")) })

	if err := g.Wait(); err != nil && !isClosure(err) {
		h.Log.Debug().Err(err).Msg("editor connection ended")
	}
}

func (h *EditorHandler) readLoop(ctx context.Context, conn *websocket.Conn, s *editor.Session, emit func(editor.Event), token string) error {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	st := s.Draft()
	emit(editor.Event{Type: editor.EventDraft, Draft: &st})
	if token != "" {
		if err := s.Authenticate(ctx, token); err != nil {
			emit(editor.ErrorEvent(editor.OpAuth, err))
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var op editor.Op
		if err := json.Unmarshal(msg, &op); err != nil {
			emit(editor.ErrorEvent("", &editor.OpError{Op: "frame", Msg: "bad json"}))
			continue
		}
		if err := s.Apply(ctx, op); err != nil {
			emit(editor.ErrorEvent(op.Op, err))
		}
	}
}

func (h *EditorHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan editor.Event) error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer conn.Close()

	for {
		select {
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return err
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if errors.Is(context.Cause(ctx), errSlowClient) {
				msg = websocket.FormatCloseMessage(websocket.ClosePolicyViolation, errSlowClient.Error())
			}
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return ctx.Err()
		}
	}
}

func isClosure(err error) bool {
	return errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
