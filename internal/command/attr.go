// Package command implements the ordered key-value broadcast used to
// share small state fragments (profile data, follow-me state, shared
// video position) among session participants.
package command

import "strconv"

// AttrType tags the declared type of an attribute value.
type AttrType int

const (
	AttrString AttrType = iota
	AttrNumber
	AttrBool
)

// Attr is an attribute value at the channel boundary. The wire does not
// preserve types: everything travels as a string and consumers decode
// explicitly.
type Attr struct {
	typ AttrType
	s   string
}

func String(v string) Attr { return Attr{typ: AttrString, s: v} }

func Bool(v bool) Attr { return Attr{typ: AttrBool, s: strconv.FormatBool(v)} }

func Number(v float64) Attr {
	return Attr{typ: AttrNumber, s: strconv.FormatFloat(v, 'f', -1, 64)}
}

// Wire returns the string form sent on the wire.
func (a Attr) Wire() string { return a.s }

func (a Attr) Type() AttrType { return a.typ }

// AsString returns the raw string value.
func (a Attr) AsString() string { return a.s }

// AsBool decodes by literal comparison against "true": a boolean that
// round-tripped through the wire as a string still decodes correctly,
// and anything else is false.
func (a Attr) AsBool() bool { return a.s == "true" }

// AsNumber decodes a numeric value, returning 0 on garbage.
func (a Attr) AsNumber() float64 {
	f, err := strconv.ParseFloat(a.s, 64)
	if err != nil {
		return 0
	}
	return f
}

// FromWire wraps a received raw string. Received attributes are always
// strings regardless of what the sender declared.
func FromWire(s string) Attr { return Attr{typ: AttrString, s: s} }
