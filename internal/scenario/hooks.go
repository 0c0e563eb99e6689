package scenario

import (
	"github.com/and161185/relay-loadgen/internal/hook"
)

// Hook names as exposed to drivers.
const (
	HookCreateMessage      = "createMessage"
	HookCreateSubscription = "createSubscription"
)

// CreateMessage is the publish hook: it stores ["EVENT", event] under vars["message"].
func (g *Generator) CreateMessage(c *hook.Context, _ any, done hook.Done) {
	msg, err := g.Publish(c.Context())
	if err != nil {
		done(err)
		return
	}
	if c.Vars == nil {
		c.Vars = map[string]any{}
	}
	c.Vars[hook.MessageVar] = msg
	done(nil)
}

// CreateSubscription is the subscribe hook: it stores ["REQ", id, filter] under vars["message"].
func (g *Generator) CreateSubscription(c *hook.Context, _ any, done hook.Done) {
	msg, err := g.Subscribe(c.Context())
	if err != nil {
		done(err)
		return
	}
	if c.Vars == nil {
		c.Vars = map[string]any{}
	}
	c.Vars[hook.MessageVar] = msg
	done(nil)
}

// Hooks returns the generator's hooks keyed by driver-visible name.
func (g *Generator) Hooks() map[string]hook.Func {
	return map[string]hook.Func{
		HookCreateMessage:      g.CreateMessage,
		HookCreateSubscription: g.CreateSubscription,
	}
}
