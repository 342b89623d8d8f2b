// Package followme lets a moderator mirror parts of their interface
// state (film strip visibility, shared document visibility, the pinned
// participant) onto every other participant over the command channel.
package followme

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// pinRetryMax bounds how long a received pin is retried while the
// target's thumbnail has not shown up yet.
const (
	pinRetryMax      = 30
	pinRetryInterval = time.Second
)

// Conference is the slice of the session surface the follow-me
// controller needs. Satisfied by session.Session.
type Conference interface {
	Commands() *command.Channel
	MyID() domain.ParticipantID
	IsModerator() bool
	IsParticipantModerator(id domain.ParticipantID) bool
}

// state holds the three followed facts. nil NextOnStage means nothing
// is pinned.
type state struct {
	FilmStripVisible bool
	SharedDocVisible bool
	NextOnStage      *domain.ParticipantID
}

// Controller is both the producer and the consumer of the follow-me
// command. The consumer side is always attached, since a non-moderator
// may become a moderator mid-session; received commands are validated
// against the sender's role instead.
type Controller struct {
	conf Conference
	ui   core.UINotifier

	newTimer func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	enabled bool
	local   state

	pinAttempts int
	pinTimer    *time.Timer
}

func New(conf Conference, ui core.UINotifier) *Controller {
	c := &Controller{
		conf:     conf,
		ui:       ui,
		newTimer: time.AfterFunc,
	}
	conf.Commands().AddCommandListener(command.FollowMe, c.onCommand)
	return c
}

// Enable starts broadcasting: the current interface state is captured
// and pushed immediately so late enabling still syncs everyone.
// Idempotent.
func (c *Controller) Enable() {
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = true
	c.local.FilmStripVisible = c.ui.IsFilmStripVisible()
	c.local.SharedDocVisible = c.ui.IsSharedDocVisible()
	if id, ok := c.ui.PinnedID(); ok {
		c.local.NextOnStage = &id
	} else {
		c.local.NextOnStage = nil
	}
	c.mu.Unlock()

	c.broadcast()
}

// Disable stops broadcasting and retracts the persisted command so new
// joiners stop receiving stale state. Idempotent.
func (c *Controller) Disable() {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = false
	c.mu.Unlock()

	c.conf.Commands().RemoveCommand(command.FollowMe)
}

// FilmStripToggled records a local film strip visibility change.
func (c *Controller) FilmStripToggled(visible bool) {
	c.mu.Lock()
	changed := c.local.FilmStripVisible != visible
	c.local.FilmStripVisible = visible
	c.mu.Unlock()
	if changed {
		c.broadcast()
	}
}

// SharedDocToggled records a local shared document visibility change.
func (c *Controller) SharedDocToggled(visible bool) {
	c.mu.Lock()
	changed := c.local.SharedDocVisible != visible
	c.local.SharedDocVisible = visible
	c.mu.Unlock()
	if changed {
		c.broadcast()
	}
}

// PinnedChanged records a local pin change; nil means unpinned.
func (c *Controller) PinnedChanged(id *domain.ParticipantID) {
	if !c.conf.IsModerator() {
		return
	}
	c.mu.Lock()
	changed := !idEqual(c.local.NextOnStage, id)
	c.local.NextOnStage = id
	c.mu.Unlock()
	if changed {
		c.broadcast()
	}
}

func idEqual(a, b *domain.ParticipantID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// broadcast sends the full snapshot of all followed facts. The command
// represents a snapshot, not a delta, so the previous persisted value is
// retracted first.
func (c *Controller) broadcast() {
	if !c.conf.IsModerator() {
		return
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	snap := c.local
	c.mu.Unlock()

	nextOnStage := ""
	if snap.NextOnStage != nil {
		nextOnStage = string(*snap.NextOnStage)
	}
	c.conf.Commands().ReplaceOnce(command.FollowMe, command.Payload{
		Attributes: map[string]command.Attr{
			"filmStripVisible":      command.Bool(snap.FilmStripVisible),
			"nextOnStage":           command.String(nextOnStage),
			"sharedDocumentVisible": command.Bool(snap.SharedDocVisible),
		},
	})
}

// onCommand applies a received snapshot to the local interface. Own
// commands are skipped (the channel echoes them back) and commands from
// non-moderators are rejected.
func (c *Controller) onCommand(p command.Payload, from domain.ParticipantID) {
	if from == "" || from == c.conf.MyID() {
		return
	}
	if !c.conf.IsParticipantModerator(from) {
		log.Warn().Str("module", "followme").Str("from", string(from)).Msg("command not from moderator")
		return
	}

	if attr, ok := p.Attributes["filmStripVisible"]; ok {
		if attr.AsBool() != c.ui.IsFilmStripVisible() {
			c.ui.ToggleFilmStrip()
		}
	}
	if attr, ok := p.Attributes["nextOnStage"]; ok {
		c.applyNextOnStage(attr.AsString())
	}
	if attr, ok := p.Attributes["sharedDocumentVisible"]; ok {
		if attr.AsBool() != c.ui.IsSharedDocVisible() {
			c.ui.ToggleSharedDoc()
		}
	}
}

// applyNextOnStage reconciles the local pin with the moderator's. An
// empty id clears the stage; a set id pins, retrying for a while in
// case the target joined but its thumbnail has not been created yet.
func (c *Controller) applyNextOnStage(raw string) {
	id := domain.ParticipantID(raw)
	pinned, hasPinned := c.ui.PinnedID()

	switch {
	case raw != "" && (!hasPinned || pinned != id):
		c.pinThumbnail(id)
	case raw == "" && hasPinned:
		c.cancelPinRetry()
		c.ui.ClickThumbnail(pinned)
	}
}

// pinThumbnail clicks the target's thumbnail, or schedules a retry when
// the thumbnail does not exist yet. A newer pin target supersedes a
// pending retry.
func (c *Controller) pinThumbnail(id domain.ParticipantID) {
	c.cancelPinRetry()

	if c.ui.HasThumbnail(id) {
		c.mu.Lock()
		c.pinAttempts = 0
		c.mu.Unlock()
		if pinned, ok := c.ui.PinnedID(); !ok || pinned != id {
			c.ui.ClickThumbnail(id)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinAttempts >= pinRetryMax {
		c.pinAttempts = 0
		return
	}
	c.pinAttempts++
	c.pinTimer = c.newTimer(pinRetryInterval, func() { c.pinThumbnail(id) })
}

func (c *Controller) cancelPinRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinTimer != nil {
		c.pinTimer.Stop()
		c.pinTimer = nil
	}
}
