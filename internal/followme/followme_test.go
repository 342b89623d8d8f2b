package followme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/adapters/console"
	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/domain"
)

type sentOp struct {
	op   string
	name string
	p    command.Payload
}

type fakeConference struct {
	myID       domain.ParticipantID
	moderator  bool
	moderators map[domain.ParticipantID]bool

	ops      []sentOp
	handlers map[string][]command.Handler
	cmds     *command.Channel
}

func newFakeConference(moderator bool) *fakeConference {
	c := &fakeConference{
		myID:       "me",
		moderator:  moderator,
		moderators: make(map[domain.ParticipantID]bool),
		handlers:   make(map[string][]command.Handler),
	}
	c.cmds = command.NewChannel(c)
	return c
}

func (c *fakeConference) Commands() *command.Channel { return c.cmds }
func (c *fakeConference) MyID() domain.ParticipantID { return c.myID }
func (c *fakeConference) IsModerator() bool          { return c.moderator }
func (c *fakeConference) IsParticipantModerator(id domain.ParticipantID) bool {
	return c.moderators[id]
}

func (c *fakeConference) AddCommandListener(name string, h command.Handler) {
	c.handlers[name] = append(c.handlers[name], h)
}
func (c *fakeConference) RemoveCommand(name string) {
	c.ops = append(c.ops, sentOp{op: "remove", name: name})
}
func (c *fakeConference) SendCommand(name string, p command.Payload) {
	c.ops = append(c.ops, sentOp{op: "send", name: name, p: p})
}
func (c *fakeConference) SendCommandOnce(name string, p command.Payload) {
	c.ops = append(c.ops, sentOp{op: "send_once", name: name, p: p})
}

func (c *fakeConference) deliver(p command.Payload, from domain.ParticipantID) {
	for _, h := range c.handlers[command.FollowMe] {
		h(p, from)
	}
}

func (c *fakeConference) lastBroadcast(t *testing.T) command.Payload {
	t.Helper()
	for i := len(c.ops) - 1; i >= 0; i-- {
		if c.ops[i].op == "send_once" {
			return c.ops[i].p
		}
	}
	t.Fatal("no broadcast recorded")
	return command.Payload{}
}

func snapshotFrom(filmStrip bool, nextOnStage string, sharedDoc bool) command.Payload {
	return command.Payload{Attributes: map[string]command.Attr{
		"filmStripVisible":      command.Bool(filmStrip),
		"nextOnStage":           command.String(nextOnStage),
		"sharedDocumentVisible": command.Bool(sharedDoc),
	}}
}

func TestEnableBroadcastsCurrentState(t *testing.T) {
	conf := newFakeConference(true)
	ui := console.NewUI()
	ui.AddUser(&domain.Participant{ID: "peer"})
	ui.ClickThumbnail("peer")

	c := New(conf, ui)
	c.Enable()

	p := conf.lastBroadcast(t)
	assert.True(t, p.Attributes["filmStripVisible"].AsBool())
	assert.Equal(t, "peer", p.Attributes["nextOnStage"].AsString())
	assert.False(t, p.Attributes["sharedDocumentVisible"].AsBool())
}

func TestEnableIsIdempotent(t *testing.T) {
	conf := newFakeConference(true)
	c := New(conf, console.NewUI())

	c.Enable()
	n := len(conf.ops)
	c.Enable()

	assert.Equal(t, n, len(conf.ops))
}

func TestNonModeratorNeverBroadcasts(t *testing.T) {
	conf := newFakeConference(false)
	c := New(conf, console.NewUI())

	c.Enable()
	c.FilmStripToggled(false)

	assert.Empty(t, conf.ops)
}

func TestFilmStripToggledBroadcastsOnlyOnChange(t *testing.T) {
	conf := newFakeConference(true)
	c := New(conf, console.NewUI())
	c.Enable()
	n := len(conf.ops)

	c.FilmStripToggled(true) // already true after Enable
	assert.Equal(t, n, len(conf.ops))

	c.FilmStripToggled(false)
	assert.Greater(t, len(conf.ops), n)
	assert.False(t, conf.lastBroadcast(t).Attributes["filmStripVisible"].AsBool())
}

func TestDisableRetractsPersistedCommand(t *testing.T) {
	conf := newFakeConference(true)
	c := New(conf, console.NewUI())
	c.Enable()

	c.Disable()

	last := conf.ops[len(conf.ops)-1]
	assert.Equal(t, "remove", last.op)
	assert.Equal(t, command.FollowMe, last.name)

	// Further local changes are not broadcast once disabled.
	n := len(conf.ops)
	c.FilmStripToggled(false)
	assert.Equal(t, n, len(conf.ops))
}

func TestCommandFromSelfIgnored(t *testing.T) {
	conf := newFakeConference(false)
	ui := console.NewUI()
	New(conf, ui)

	conf.deliver(snapshotFrom(false, "", false), conf.myID)

	assert.True(t, ui.IsFilmStripVisible())
}

func TestCommandFromNonModeratorRejected(t *testing.T) {
	conf := newFakeConference(false)
	ui := console.NewUI()
	New(conf, ui)

	conf.deliver(snapshotFrom(false, "", false), "intruder")

	assert.True(t, ui.IsFilmStripVisible())
}

func TestCommandFromModeratorApplied(t *testing.T) {
	conf := newFakeConference(false)
	conf.moderators["boss"] = true
	ui := console.NewUI()
	ui.AddUser(&domain.Participant{ID: "peer"})
	New(conf, ui)

	conf.deliver(snapshotFrom(false, "peer", true), "boss")

	assert.False(t, ui.IsFilmStripVisible())
	assert.True(t, ui.IsSharedDocVisible())
	pinned, ok := ui.PinnedID()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("peer"), pinned)
}

func TestEmptyNextOnStageUnpins(t *testing.T) {
	conf := newFakeConference(false)
	conf.moderators["boss"] = true
	ui := console.NewUI()
	ui.AddUser(&domain.Participant{ID: "peer"})
	ui.ClickThumbnail("peer")
	New(conf, ui)

	conf.deliver(snapshotFrom(true, "", false), "boss")

	_, ok := ui.PinnedID()
	assert.False(t, ok)
}

func TestPinRetriesUntilThumbnailAppears(t *testing.T) {
	conf := newFakeConference(false)
	conf.moderators["boss"] = true
	ui := console.NewUI()

	c := New(conf, ui)
	var pending []func()
	c.newTimer = func(d time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.NewTimer(time.Hour)
	}

	conf.deliver(snapshotFrom(true, "late", false), "boss")

	// The thumbnail is not there yet: a retry is scheduled, nothing pinned.
	require.Len(t, pending, 1)
	_, ok := ui.PinnedID()
	assert.False(t, ok)

	ui.AddUser(&domain.Participant{ID: "late"})
	pending[0]()

	pinned, ok := ui.PinnedID()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("late"), pinned)
}

func TestPinRetryGivesUpAfterCap(t *testing.T) {
	conf := newFakeConference(false)
	conf.moderators["boss"] = true
	ui := console.NewUI()

	c := New(conf, ui)
	var pending []func()
	c.newTimer = func(d time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.NewTimer(time.Hour)
	}

	conf.deliver(snapshotFrom(true, "ghost", false), "boss")
	for i := 0; i < pinRetryMax*2 && i < len(pending); i++ {
		pending[i]()
	}

	assert.Equal(t, pinRetryMax, len(pending))
	_, ok := ui.PinnedID()
	assert.False(t, ok)
}
