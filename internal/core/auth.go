package core

import (
	"context"

	"github.com/solivar/confab/internal/domain"
)

// AuthGateway is the external authenticator collaborator. It owns the
// dialog and redirect plumbing; the session layer only decides when the
// escalation runs.
type AuthGateway interface {
	// ShowAuthRequiredPrompt tells the user that authentication is needed
	// to create the room and offers onAuthenticate. The returned closer
	// dismisses the prompt and must tolerate repeated calls.
	ShowAuthRequiredPrompt(room domain.RoomName, onAuthenticate func()) (close func())
	// RunAuthFlow performs the credential exchange (dialog or external
	// service) and resolves once the focus recognizes the session.
	RunAuthFlow(ctx context.Context, conf Conference, lockPassword string) error
}
