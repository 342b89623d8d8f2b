// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxDisplayNameLen limits display names; longer values are cut.
	MaxDisplayNameLen = 50
)

var ErrDisplayNameEmpty = errors.New("display name empty")

type ParticipantID string

// Role mirrors the authoritative value owned by the signaling layer.
type Role string

const (
	RoleNone      Role = "none"
	RoleModerator Role = "moderator"
)

// Participant represents a local or remote session member. Metadata
// fields are last-write-wins; the signaling layer owns the role.
type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"display_name"`
	Email       string        `json:"email,omitempty"`
	AvatarID    string        `json:"avatar_id,omitempty"`
	AvatarURL   string        `json:"avatar_url,omitempty"`
	Role        Role          `json:"role"`
	Hidden      bool          `json:"hidden,omitempty"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(name string) *Participant {
	return &Participant{
		ID:          ParticipantID(uuid.NewString()),
		DisplayName: TrimDisplayName(name),
		Role:        RoleNone,
	}
}

func (p *Participant) IsModerator() bool { return p.Role == RoleModerator }

func (p *Participant) SetDisplayName(name string) error {
	if name == "" {
		return ErrDisplayNameEmpty
	}
	p.DisplayName = TrimDisplayName(name)
	return nil
}

// TrimDisplayName strips surrounding whitespace and cuts the result
// down to MaxDisplayNameLen runes.
func TrimDisplayName(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > MaxDisplayNameLen {
		r = r[:MaxDisplayNameLen]
	}
	return string(r)
}
