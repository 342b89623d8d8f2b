package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/domain"
)

type recordedOp struct {
	op   string
	name string
	p    Payload
}

type recordingCommander struct {
	ops      []recordedOp
	handlers map[string][]Handler
}

func newRecordingCommander() *recordingCommander {
	return &recordingCommander{handlers: make(map[string][]Handler)}
}

func (c *recordingCommander) AddCommandListener(name string, h Handler) {
	c.handlers[name] = append(c.handlers[name], h)
}

func (c *recordingCommander) RemoveCommand(name string) {
	c.ops = append(c.ops, recordedOp{op: "remove", name: name})
}

func (c *recordingCommander) SendCommand(name string, p Payload) {
	c.ops = append(c.ops, recordedOp{op: "send", name: name, p: p})
}

func (c *recordingCommander) SendCommandOnce(name string, p Payload) {
	c.ops = append(c.ops, recordedOp{op: "send_once", name: name, p: p})
}

func (c *recordingCommander) deliver(name string, p Payload, from domain.ParticipantID) {
	for _, h := range c.handlers[name] {
		h(p, from)
	}
}

func TestReplaceRemovesBeforeSending(t *testing.T) {
	rec := newRecordingCommander()
	ch := NewChannel(rec)

	ch.Replace(FollowMe, Payload{Attributes: map[string]Attr{"filmStripVisible": Bool(true)}})

	require.Len(t, rec.ops, 2)
	assert.Equal(t, "remove", rec.ops[0].op)
	assert.Equal(t, "send", rec.ops[1].op)
	assert.Equal(t, FollowMe, rec.ops[1].name)
}

func TestReplaceOnceDoesNotPersist(t *testing.T) {
	rec := newRecordingCommander()
	ch := NewChannel(rec)

	ch.ReplaceOnce(SharedVideo, Payload{Value: "abc"})

	require.Len(t, rec.ops, 2)
	assert.Equal(t, "remove", rec.ops[0].op)
	assert.Equal(t, "send_once", rec.ops[1].op)
}

func TestShareValueCarriesOnlyValue(t *testing.T) {
	rec := newRecordingCommander()
	ch := NewChannel(rec)

	ch.ShareValue(Email, "me@example.com")

	require.Len(t, rec.ops, 2)
	assert.Equal(t, "me@example.com", rec.ops[1].p.Value)
	assert.Empty(t, rec.ops[1].p.Attributes)
}

func TestListenerReceivesSenderIdentity(t *testing.T) {
	rec := newRecordingCommander()
	ch := NewChannel(rec)

	var gotFrom domain.ParticipantID
	ch.AddCommandListener(Etherpad, func(p Payload, from domain.ParticipantID) {
		gotFrom = from
	})
	rec.deliver(Etherpad, Payload{Value: "pad"}, "peer-1")

	assert.Equal(t, domain.ParticipantID("peer-1"), gotFrom)
}

func TestAttrBoolSurvivesWireRoundTrip(t *testing.T) {
	// The wire flattens every attribute to a string; a boolean true must
	// still decode as true on the receiving side.
	assert.Equal(t, "true", Bool(true).Wire())
	assert.True(t, FromWire(Bool(true).Wire()).AsBool())
	assert.False(t, FromWire(Bool(false).Wire()).AsBool())
	assert.False(t, FromWire("yes").AsBool())
}

func TestAttrNumberDecodesGarbageAsZero(t *testing.T) {
	assert.Equal(t, 42.5, FromWire("42.5").AsNumber())
	assert.Equal(t, float64(0), FromWire("not a number").AsNumber())
}
