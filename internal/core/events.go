package core

import (
	"time"

	"github.com/solivar/confab/internal/domain"
)

// ConferenceObserver is the full typed event set a conference emits.
// Embed BaseConferenceObserver to implement a subset.
type ConferenceObserver interface {
	ConferenceJoined()
	// ConferenceFailed reports a join/lifecycle failure. Terminality is
	// decided by the consumer per error code.
	ConferenceFailed(err *ConferenceError)
	// ConferenceError reports a non-fatal in-session error.
	ConferenceErrored(err *ConferenceError)

	UserJoined(p *domain.Participant)
	UserLeft(id domain.ParticipantID, displayName string)
	RoleChanged(id domain.ParticipantID, role domain.Role)
	DominantSpeakerChanged(id domain.ParticipantID)
	DisplayNameChanged(id domain.ParticipantID, name string)
	ParticipantPropertyChanged(id domain.ParticipantID, name, value string)

	TrackAdded(t RemoteTrack)
	TrackRemoved(t RemoteTrack)
	TrackMuteChanged(info domain.TrackInfo)

	ConnectionInterrupted()
	ConnectionRestored()

	MessageReceived(id domain.ParticipantID, text string, ts time.Time)
	SubjectChanged(subject string)
	StartMutedPolicyChanged(audio, video bool)
	StartedMuted(audio, video bool)
	RecordingStateChanged(state string)
	AuthStatusChanged(enabled bool, login string)
	Kicked()
	SuspendDetected()
}

// ConnectionObserver is the connection-level event set.
type ConnectionObserver interface {
	ConnectionEstablished()
	ConnectionFailed(err *ConnectionError)
}

// BaseConferenceObserver is a no-op ConferenceObserver for embedding.
type BaseConferenceObserver struct{}

func (BaseConferenceObserver) ConferenceJoined()                                              {}
func (BaseConferenceObserver) ConferenceFailed(*ConferenceError)                              {}
func (BaseConferenceObserver) ConferenceErrored(*ConferenceError)                             {}
func (BaseConferenceObserver) UserJoined(*domain.Participant)                                 {}
func (BaseConferenceObserver) UserLeft(domain.ParticipantID, string)                          {}
func (BaseConferenceObserver) RoleChanged(domain.ParticipantID, domain.Role)                  {}
func (BaseConferenceObserver) DominantSpeakerChanged(domain.ParticipantID)                    {}
func (BaseConferenceObserver) DisplayNameChanged(domain.ParticipantID, string)                {}
func (BaseConferenceObserver) ParticipantPropertyChanged(domain.ParticipantID, string, string) {}
func (BaseConferenceObserver) TrackAdded(RemoteTrack)                                         {}
func (BaseConferenceObserver) TrackRemoved(RemoteTrack)                                       {}
func (BaseConferenceObserver) TrackMuteChanged(domain.TrackInfo)                              {}
func (BaseConferenceObserver) ConnectionInterrupted()                                         {}
func (BaseConferenceObserver) ConnectionRestored()                                            {}
func (BaseConferenceObserver) MessageReceived(domain.ParticipantID, string, time.Time)        {}
func (BaseConferenceObserver) SubjectChanged(string)                                          {}
func (BaseConferenceObserver) StartMutedPolicyChanged(bool, bool)                             {}
func (BaseConferenceObserver) StartedMuted(bool, bool)                                        {}
func (BaseConferenceObserver) RecordingStateChanged(string)                                   {}
func (BaseConferenceObserver) AuthStatusChanged(bool, string)                                 {}
func (BaseConferenceObserver) Kicked()                                                       {}
func (BaseConferenceObserver) SuspendDetected()                                              {}
