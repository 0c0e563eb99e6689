// Package relay is a minimal in-process relay used to smoke-test generated traffic.
// It verifies every EVENT, acknowledges REQ with EOSE and stores nothing.
package relay

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/and161185/relay-loadgen/internal/convert"
	"github.com/and161185/relay-loadgen/internal/event"
	"github.com/and161185/relay-loadgen/internal/model"
)

// Stats counts handled frames.
type Stats struct {
	Accepted int64
	Rejected int64
	Reqs     int64
	Closes   int64
	Notices  int64
}

// Relay answers client frames.
type Relay struct {
	log *zap.Logger

	accepted atomic.Int64
	rejected atomic.Int64
	reqs     atomic.Int64
	closes   atomic.Int64
	notices  atomic.Int64
}

// New constructs a Relay.
func New(log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{log: log}
}

// Handler serves the relay over websocket.
func (r *Relay) Handler() http.Handler {
	return websocket.Handler(r.serve)
}

func (r *Relay) serve(ws *websocket.Conn) {
	defer ws.Close()
	remote := ws.Request().RemoteAddr
	r.log.Debug("client connected", zap.String("peer", remote))

	for {
		var raw string
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Debug("receive", zap.String("peer", remote), zap.Error(err))
			}
			return
		}
		for _, reply := range r.Handle([]byte(raw)) {
			b, err := convert.EncodeRelayMessage(reply)
			if err != nil {
				r.log.Error("encode reply", zap.Error(err))
				continue
			}
			if err := websocket.Message.Send(ws, string(b)); err != nil {
				r.log.Debug("send", zap.String("peer", remote), zap.Error(err))
				return
			}
		}
	}
}

// Handle processes one client frame and returns the replies to send.
func (r *Relay) Handle(frame []byte) []model.RelayMessage {
	msg, err := convert.DecodeClientMessage(frame)
	if err != nil {
		r.notices.Inc()
		return []model.RelayMessage{{Type: model.RelayNotice, Message: "error: " + err.Error()}}
	}

	switch msg.Type {
	case model.TypeEvent:
		ok := model.RelayMessage{Type: model.RelayOK, EventID: msg.Event.ID}
		if err := event.Verify(*msg.Event); err != nil {
			r.rejected.Inc()
			ok.Message = "invalid: " + err.Error()
			return []model.RelayMessage{ok}
		}
		r.accepted.Inc()
		ok.Accepted = true
		return []model.RelayMessage{ok}
	case model.TypeReq:
		r.reqs.Inc()
		return []model.RelayMessage{{Type: model.RelayEOSE, SubscriptionID: msg.SubscriptionID}}
	case model.TypeClose:
		r.closes.Inc()
		return []model.RelayMessage{{Type: model.RelayClosed, SubscriptionID: msg.SubscriptionID}}
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Accepted: r.accepted.Load(),
		Rejected: r.rejected.Load(),
		Reqs:     r.reqs.Load(),
		Closes:   r.closes.Load(),
		Notices:  r.notices.Load(),
	}
}
