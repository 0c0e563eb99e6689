// Package model defines the protocol entities produced by generators and consumed by transports.
package model

// Protocol constants.
const (
	KindTextNote = 1

	DefaultPoolSize  = 10
	DefaultRelayHint = "test.relay.dev"
)

// Tag is a single event tag: [name, value, relayHint...].
type Tag []string

// Tags is an ordered tag list.
type Tags []Tag

// EventFields are the signed fields of an event (everything except id and sig).
type EventFields struct {
	PubKey    string
	CreatedAt int64 // unix seconds
	Kind      int
	Tags      Tags
	Content   string
}

// Event is a signed, publishable unit. JSON field order matches the relay wire format.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// Fields returns the signed portion of the event.
func (e Event) Fields() EventFields {
	return EventFields{
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Tags:      e.Tags,
		Content:   e.Content,
	}
}

// Filter is a subscription filter. Authors is always present on the wire, even when empty.
type Filter struct {
	Authors []string `json:"authors"`
}

// MessageType labels client->relay frames.
type MessageType string

// Client message labels.
const (
	TypeEvent MessageType = "EVENT"
	TypeReq   MessageType = "REQ"
	TypeClose MessageType = "CLOSE"
)

// Message is a client->relay frame: Publish(event), Subscribe(id, filter) or Close(id).
type Message struct {
	Type           MessageType
	Event          *Event  // TypeEvent only
	SubscriptionID string  // TypeReq, TypeClose
	Filter         *Filter // TypeReq only
}

// PublishMessage wraps a signed event into an EVENT frame.
func PublishMessage(ev Event) Message {
	return Message{Type: TypeEvent, Event: &ev}
}

// SubscribeMessage builds a REQ frame with a single filter.
func SubscribeMessage(subID string, f Filter) Message {
	return Message{Type: TypeReq, SubscriptionID: subID, Filter: &f}
}

// CloseMessage builds a CLOSE frame for a subscription.
func CloseMessage(subID string) Message {
	return Message{Type: TypeClose, SubscriptionID: subID}
}

// RelayMessageType labels relay->client frames.
type RelayMessageType string

// Relay message labels.
const (
	RelayOK     RelayMessageType = "OK"
	RelayEOSE   RelayMessageType = "EOSE"
	RelayNotice RelayMessageType = "NOTICE"
	RelayEvent  RelayMessageType = "EVENT"
	RelayClosed RelayMessageType = "CLOSED"
)

// RelayMessage is a decoded relay->client frame.
type RelayMessage struct {
	Type           RelayMessageType
	SubscriptionID string // EOSE, EVENT, CLOSED
	EventID        string // OK
	Accepted       bool   // OK
	Message        string // OK reason, NOTICE text, CLOSED reason
	Event          *Event // EVENT
}
