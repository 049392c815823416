package status

import (
	"slices"
	"sync"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/engine"
)

// expectedTransitions lists the transitions the engine normally makes.
// The projection never rejects a transition; it only reports unusual ones.
var expectedTransitions = map[engine.AuthStateKind][]engine.AuthStateKind{
	engine.AuthWaitCredentials: {engine.AuthWaitPhone, engine.AuthWaitOtherDevice, engine.AuthReady, engine.AuthClosed},
	engine.AuthWaitPhone:       {engine.AuthWaitCode, engine.AuthWaitOtherDevice, engine.AuthClosed},
	engine.AuthWaitCode:        {engine.AuthWaitPassword, engine.AuthReady, engine.AuthWaitPhone, engine.AuthClosed},
	engine.AuthWaitPassword:    {engine.AuthReady, engine.AuthWaitPhone, engine.AuthClosed},
	engine.AuthWaitOtherDevice: {engine.AuthWaitOtherDevice, engine.AuthReady, engine.AuthWaitPhone, engine.AuthClosed},
	engine.AuthReady:           {engine.AuthLoggingOut, engine.AuthClosed},
	engine.AuthLoggingOut:      {engine.AuthClosed},
	engine.AuthClosed:          {engine.AuthWaitCredentials},
}

// Expected reports whether from -> to is a transition the engine normally makes.
func Expected(from, to engine.AuthStateKind) bool {
	return slices.Contains(expectedTransitions[from], to)
}

// Projection mirrors the engine's authorization state. It owns no
// transition logic: whatever the engine reports becomes current.
type Projection struct {
	mu      sync.RWMutex
	current engine.AuthState
	bus     *bus.Bus
}

// NewProjection starts in the credential-entry state.
func NewProjection(b *bus.Bus) *Projection {
	return &Projection{
		current: engine.AuthState{Kind: engine.AuthWaitCredentials},
		bus:     b,
	}
}

// Current returns the mirrored state.
func (p *Projection) Current() engine.AuthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Set records state and announces the change. It returns the transition.
func (p *Projection) Set(state engine.AuthState) StatusChange {
	p.mu.Lock()
	change := StatusChange{From: p.current, To: state}
	p.current = state
	p.mu.Unlock()

	p.bus.Emit(bus.CacheAuth, change)
	return change
}

// StatusChange is the payload of cache.auth events.
type StatusChange struct {
	From engine.AuthState
	To   engine.AuthState
}

// Expected reports whether the change follows a usual engine transition.
func (c StatusChange) Expected() bool {
	return c.From.Kind == c.To.Kind || Expected(c.From.Kind, c.To.Kind)
}
