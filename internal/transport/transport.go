// Package transport carries encoded frames to a relay over a websocket.
package transport

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/and161185/relay-loadgen/internal/convert"
	"github.com/and161185/relay-loadgen/internal/model"
)

// Conn is a websocket connection to one relay. One concurrent sender and one
// concurrent receiver are allowed.
type Conn struct {
	URL string
	ws  *websocket.Conn
}

// Dial opens a websocket to the relay. http(s) URLs and bare hosts are mapped to ws(s).
func Dial(ctx context.Context, url string) (*Conn, error) {
	wsURL, origin := NormalizeURL(url)
	cfg, err := websocket.NewConfig(wsURL, origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Conn{URL: wsURL, ws: ws}, nil
}

// Send encodes and writes one frame.
func (c *Conn) Send(m model.Message) error {
	b, err := convert.EncodeMessage(m)
	if err != nil {
		return err
	}
	return c.SendRaw(b)
}

// SendRaw writes an already encoded frame as a text message.
func (c *Conn) SendRaw(b []byte) error {
	return websocket.Message.Send(c.ws, string(b))
}

// Receive reads and decodes the next relay frame.
func (c *Conn) Receive() (model.RelayMessage, error) {
	var raw string
	if err := websocket.Message.Receive(c.ws, &raw); err != nil {
		return model.RelayMessage{}, err
	}
	return convert.DecodeRelayMessage([]byte(raw))
}

// Close closes the underlying websocket.
func (c *Conn) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// NormalizeURL returns the websocket URL and the matching http origin.
func NormalizeURL(url string) (ws string, origin string) {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://"), url
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://"), url
	case strings.HasPrefix(url, "wss://"):
		return url, "https://" + strings.TrimPrefix(url, "wss://")
	case strings.HasPrefix(url, "ws://"):
		return url, "http://" + strings.TrimPrefix(url, "ws://")
	}
	return "wss://" + url, "https://" + url
}
