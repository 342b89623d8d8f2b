// Package core declares the collaborator interfaces the session layer is
// written against: the signaling engine, the UI, the API notifier, the
// capture service and the persisted settings store. Adapters own the
// implementations; core owns no transport resources.
package core

import (
	"context"

	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/domain"
)

// ConnectOptions configures connection establishment.
type ConnectOptions struct {
	RoomName domain.RoomName
	// ID and Password are the out-of-band credentials used by the auth
	// escalation flow; empty for anonymous connections.
	ID       string
	Password string
	Retry    bool
}

// Engine is the real-time communication engine collaborator. It is
// consumed as an abstract client: connection transport, track capture
// internals and presence are its business, not ours.
type Engine interface {
	Connect(ctx context.Context, opts ConnectOptions) error
	Disconnect(ctx context.Context) error
	// InitConference binds a conference handle to this connection. The
	// handle is not joined yet.
	InitConference(room domain.RoomName) Conference
	// AddConnectionObserver registers o and returns its remover. Removal
	// is idempotent.
	AddConnectionObserver(o ConnectionObserver) (remove func())
}

// Conference is one room handle on a connection. Not reusable after the
// session it backed is destroyed.
type Conference interface {
	command.Commander

	// Join enters the room. Success and failure are reported through
	// ConferenceObserver events, not the return value; the error covers
	// only local transport problems.
	Join(ctx context.Context, password string) error
	Leave(ctx context.Context) error
	IsJoined() bool

	MyID() domain.ParticipantID
	IsModerator() bool
	ParticipantByID(id domain.ParticipantID) (*domain.Participant, bool)
	Participants() []*domain.Participant
	ParticipantCount() int

	// AddTrack attaches a local track to the outgoing stream. Disposal of
	// the track removes it again; RemoveTrack exists for explicit detach
	// without disposal.
	AddTrack(ctx context.Context, t LocalTrack) error
	RemoveTrack(ctx context.Context, t LocalTrack) error

	SetDisplayName(name string)
	SetSubject(subject string)
	SetStartMutedPolicy(audio, video bool)
	SetLocalParticipantProperty(name, value string)

	KickParticipant(id domain.ParticipantID)
	MuteParticipant(id domain.ParticipantID)
	// SelectParticipant prioritizes a participant's video quality.
	SelectParticipant(id domain.ParticipantID) error
	// PinParticipant pins id on stage; nil unpins the last pinned.
	PinParticipant(id *domain.ParticipantID) error

	Dial(sipNumber string) error
	ToggleRecording(options map[string]string)
	SendTextMessage(text string)
	SendApplicationLog(payload string)

	// Authenticate upgrades the local participant's role with the session
	// coordinator using credentials established out-of-band.
	Authenticate(ctx context.Context) error
	// Logout de-authenticates and returns an optional redirect URL.
	Logout(ctx context.Context) (string, error)

	// AddObserver registers o and returns its remover. Removal is
	// idempotent.
	AddObserver(o ConferenceObserver) (remove func())
}
