package console

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// AuthGateway implements the authenticator collaborator for a headless
// run: the prompt is a log line and the credential flow defers to the
// engine, relying on credentials configured out-of-band.
type AuthGateway struct{}

func NewAuthGateway() *AuthGateway { return &AuthGateway{} }

func (g *AuthGateway) ShowAuthRequiredPrompt(room domain.RoomName, onAuthenticate func()) func() {
	log.Warn().Str("module", "console").Str("room", string(room)).Msg("authentication required to start this room")
	// No dialog to answer; try the configured credentials right away.
	go onAuthenticate()
	return func() {}
}

func (g *AuthGateway) RunAuthFlow(ctx context.Context, conf core.Conference, lockPassword string) error {
	if err := conf.Authenticate(ctx); err != nil {
		return err
	}
	if lockPassword != "" {
		return conf.Join(ctx, lockPassword)
	}
	return nil
}
