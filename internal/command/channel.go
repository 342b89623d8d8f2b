package command

import (
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/domain"
)

// Known command keys. These are wire-level string literals shared with
// every other client implementation.
const (
	Email       = "email"
	AvatarURL   = "avatar-url"
	AvatarID    = "avatar-id"
	Etherpad    = "etherpad"
	SharedVideo = "shared-video"
	CustomRole  = "custom-role"
	FollowMe    = "follow-me"
)

// Payload is the {value, attributes} pair carried by a command. Simple
// commands use only Value.
type Payload struct {
	Value      string
	Attributes map[string]Attr
}

// Handler receives a command from a participant. The channel delivers
// the local participant's own commands too; consumers that must not act
// on their own commands compare sender identity.
type Handler func(p Payload, from domain.ParticipantID)

// Commander is the engine-side command primitive set the channel rides
// on. Implemented by the signaling adapter.
type Commander interface {
	AddCommandListener(name string, h Handler)
	// RemoveCommand retracts the persisted command for name, if any.
	RemoveCommand(name string)
	// SendCommand persists the command and re-broadcasts it to new joiners.
	SendCommand(name string, p Payload)
	// SendCommandOnce broadcasts without persistence.
	SendCommandOnce(name string, p Payload)
}

// Channel is a thin pass-through over the session's command primitives.
// It does not enforce the remove-before-resend protocol; callers must
// retract a previously persisted value for a key before re-sending it,
// or duplicate entries accumulate and are replayed to every new joiner.
type Channel struct {
	c Commander
}

func NewChannel(c Commander) *Channel {
	return &Channel{c: c}
}

func (ch *Channel) AddCommandListener(name string, h Handler) {
	ch.c.AddCommandListener(name, h)
}

func (ch *Channel) RemoveCommand(name string) {
	ch.c.RemoveCommand(name)
}

func (ch *Channel) SendCommand(name string, p Payload) {
	ch.c.SendCommand(name, p)
}

func (ch *Channel) SendCommandOnce(name string, p Payload) {
	ch.c.SendCommandOnce(name, p)
}

// Replace sequences RemoveCommand then SendCommand for name. The wire has
// no atomic replace: another participant's write for the same key may
// land between the two operations, in which case delivery order decides
// the winner (last write wins).
func (ch *Channel) Replace(name string, p Payload) {
	ch.c.RemoveCommand(name)
	ch.c.SendCommand(name, p)
}

// ReplaceOnce sequences RemoveCommand then SendCommandOnce, the snapshot
// broadcast pattern used by follow-me and shared-video state changes.
func (ch *Channel) ReplaceOnce(name string, p Payload) {
	ch.c.RemoveCommand(name)
	ch.c.SendCommandOnce(name, p)
}

// ShareValue publishes a simple persisted value for name, retracting any
// previous one first.
func (ch *Channel) ShareValue(name, value string) {
	log.Debug().Str("module", "command").Str("name", name).Msg("share value")
	ch.Replace(name, Payload{Value: value})
}
