// Package auth runs the role-escalation flow used when the session
// coordinator refuses to create a room for an anonymous participant.
package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// Escalation drives the authenticate-then-rejoin loop. It shows the
// auth-required prompt at most once per failed join cycle; CloseAuth
// dismisses it and is safe to call at any time, any number of times.
type Escalation struct {
	gateway core.AuthGateway
	room    domain.RoomName

	mu          sync.Mutex
	closePrompt func()
}

func NewEscalation(gateway core.AuthGateway, room domain.RoomName) *Escalation {
	return &Escalation{gateway: gateway, room: room}
}

// RequireAuth opens the auth-required prompt unless one is already up.
// Choosing to authenticate hands off to the gateway's credential flow;
// the conference itself keeps retrying the join independently.
func (e *Escalation) RequireAuth(conf core.Conference, lockPassword string) {
	e.mu.Lock()
	if e.closePrompt != nil {
		e.mu.Unlock()
		return
	}
	// Reserve the slot before showing so a concurrent RequireAuth cannot
	// open a second prompt.
	e.closePrompt = func() {}
	e.mu.Unlock()

	closer := e.gateway.ShowAuthRequiredPrompt(e.room, func() {
		if err := e.gateway.RunAuthFlow(context.Background(), conf, lockPassword); err != nil {
			log.Error().Err(err).Str("module", "auth").Msg("authentication flow failed")
		}
	})

	e.mu.Lock()
	e.closePrompt = closer
	e.mu.Unlock()
}

// CloseAuth dismisses the prompt, if any. Idempotent.
func (e *Escalation) CloseAuth() {
	e.mu.Lock()
	closer := e.closePrompt
	e.closePrompt = nil
	e.mu.Unlock()
	if closer != nil {
		closer()
	}
}

// Authenticate upgrades an already joined participant, used from the
// toolbar once in the room.
func (e *Escalation) Authenticate(ctx context.Context, conf core.Conference) error {
	return conf.Authenticate(ctx)
}
