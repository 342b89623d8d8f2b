package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// setupListeners registers the session as the conference observer and
// wires the connection-dropped handler. The session translates every
// engine notification into calls on the UI and API collaborators.
func (s *Session) setupListeners() {
	remove := s.conf.AddObserver(s)
	s.mu.Lock()
	s.removeConfObserver = remove
	s.mu.Unlock()

	s.engine.AddConnectionObserver(connObserver{s})
}

type connObserver struct{ s *Session }

func (o connObserver) ConnectionEstablished() {}

// ConnectionFailed handles the connection dropping in the middle of the
// conference: reload overlay plus a best-effort leave.
func (o connObserver) ConnectionFailed(err *core.ConnectionError) {
	log.Error().Str("module", "session").Str("code", string(err.Code)).Msg("signaling connection error")
	o.s.ui.ShowPageReloadOverlay(err.IsNetworkFailure(), "conn-dropped: "+err.Msg)
	if lerr := o.s.conf.Leave(context.Background()); lerr != nil {
		log.Warn().Err(lerr).Str("module", "session").Msg("leave after dropped connection")
	}
}

func (s *Session) ConferenceJoined() {
	s.ui.MucJoined()
	s.api.NotifyConferenceJoined(s.room)
	s.ui.MarkVideoInterrupted(false)
}

// ConferenceFailed and ConferenceErrored are the connector's business.
func (s *Session) ConferenceFailed(*core.ConferenceError)  {}
func (s *Session) ConferenceErrored(*core.ConferenceError) {}

func (s *Session) UserJoined(p *domain.Participant) {
	if p.Hidden {
		return
	}
	log.Info().Str("module", "session").Str("id", string(p.ID)).Msg("user connected")
	s.api.NotifyUserJoined(p.ID)
	s.ui.AddUser(p)
	s.ui.UpdateUserRole(p)
}

func (s *Session) UserLeft(id domain.ParticipantID, displayName string) {
	log.Info().Str("module", "session").Str("id", string(id)).Msg("user left")
	s.api.NotifyUserLeft(id)
	s.ui.RemoveUser(id, displayName)
	s.ui.OnSharedVideoStop(id, nil)
}

// RoleChanged recomputes the local moderator flag only when it actually
// differs from the authoritative session value, to avoid redundant UI
// updates.
func (s *Session) RoleChanged(id domain.ParticipantID, role domain.Role) {
	if s.IsLocalID(id) {
		log.Info().Str("module", "session").Str("role", string(role)).Msg("local role changed")
		authoritative := s.conf.IsModerator()
		s.mu.Lock()
		changed := s.isModerator != authoritative
		if changed {
			s.isModerator = authoritative
		}
		s.mu.Unlock()
		if changed {
			s.ui.UpdateLocalRole(authoritative)
		}
		return
	}
	if p, ok := s.conf.ParticipantByID(id); ok {
		s.ui.UpdateUserRole(p)
	}
}

func (s *Session) DominantSpeakerChanged(id domain.ParticipantID) {
	if s.IsLocalID(id) {
		s.mu.Lock()
		s.isDominantSpeaker = true
		s.mu.Unlock()
		s.SetRaisedHand(false)
	} else {
		s.mu.Lock()
		s.isDominantSpeaker = false
		s.mu.Unlock()
		if _, ok := s.conf.ParticipantByID(id); ok {
			s.ui.SetRaisedHandStatus(id, false)
		}
	}
	s.ui.MarkDominantSpeaker(id)
}

func (s *Session) DisplayNameChanged(id domain.ParticipantID, name string) {
	formatted := domain.TrimDisplayName(name)
	s.api.NotifyDisplayNameChanged(id, formatted)
	s.ui.ChangeDisplayName(id, formatted)
}

func (s *Session) ParticipantPropertyChanged(id domain.ParticipantID, name, value string) {
	if name == "raisedHand" {
		s.ui.SetRaisedHandStatus(id, value == "true")
	}
}

func (s *Session) TrackAdded(t core.RemoteTrack) {
	s.ui.AddRemoteStream(t)
}

func (s *Session) TrackRemoved(t core.RemoteTrack) {
	s.ui.RemoveRemoteStream(t)
}

func (s *Session) TrackMuteChanged(info domain.TrackInfo) {
	id := info.Owner
	if s.IsLocalID(id) {
		s.mu.Lock()
		if info.Kind.MediaKind() == domain.TrackAudio {
			s.audioMuted = info.Muted
		} else {
			s.videoMuted = info.Muted
		}
		s.mu.Unlock()
	}
	if info.Kind.MediaKind() == domain.TrackAudio {
		s.ui.SetAudioMuted(id, info.Muted)
	} else {
		s.ui.SetVideoMuted(id, info.Muted)
	}
}

func (s *Session) ConnectionInterrupted() {
	s.ui.MarkVideoInterrupted(true)
	s.ui.ShowLocalConnectionInterrupted(true)
}

func (s *Session) ConnectionRestored() {
	s.ui.MarkVideoInterrupted(false)
	s.ui.ShowLocalConnectionInterrupted(false)
}

func (s *Session) MessageReceived(id domain.ParticipantID, text string, ts time.Time) {
	name := s.DisplayName(id)
	s.api.NotifyReceivedChatMessage(id, name, text, ts)
	s.ui.AddMessage(id, name, text)
}

func (s *Session) SubjectChanged(subject string) {
	s.ui.SetSubject(subject)
}

func (s *Session) StartMutedPolicyChanged(audio, video bool) {
	s.ui.OnStartMutedChanged(audio, video)
}

func (s *Session) StartedMuted(audio, video bool) {
	if audio || video {
		s.ui.NotifyInitiallyMuted()
	}
}

func (s *Session) RecordingStateChanged(state string) {
	log.Info().Str("module", "session").Str("state", state).Msg("recorder status change")
	s.ui.UpdateRecordingState(state)
}

func (s *Session) AuthStatusChanged(enabled bool, login string) {
	s.ui.UpdateAuthInfo(enabled, login)
}

func (s *Session) Kicked() {
	s.ui.NotifyKicked()
}

// SuspendDetected handles host suspend: local tracks are disposed and
// the device listener detached before the resume overlay shows. Capture
// is not resumed automatically, since a camera failure during the
// suspend transition is indistinguishable from a real device fault.
func (s *Session) SuspendDetected() {
	s.mu.Lock()
	remove := s.removeDeviceListener
	s.removeDeviceListener = nil
	s.mu.Unlock()
	if remove != nil {
		remove()
	}

	s.disposeLocalTracks(context.Background())
	s.ui.ShowSuspendedOverlay()
}

// setupCommandListeners subscribes the profile and shared-state command
// consumers on the channel.
func (s *Session) setupCommandListeners() {
	s.cmds.AddCommandListener(command.Etherpad, func(p command.Payload, _ domain.ParticipantID) {
		s.ui.InitEtherpad(p.Value)
	})
	s.cmds.AddCommandListener(command.Email, func(p command.Payload, from domain.ParticipantID) {
		s.ui.SetUserEmail(from, p.Value)
	})
	s.cmds.AddCommandListener(command.AvatarURL, func(p command.Payload, from domain.ParticipantID) {
		s.ui.SetUserAvatarURL(from, p.Value)
	})
	s.cmds.AddCommandListener(command.AvatarID, func(p command.Payload, from domain.ParticipantID) {
		s.ui.SetUserAvatarID(from, p.Value)
	})
	s.cmds.AddCommandListener(command.SharedVideo, func(p command.Payload, from domain.ParticipantID) {
		attrs := wireAttrs(p.Attributes)
		switch attrs["state"] {
		case "stop":
			s.ui.OnSharedVideoStop(from, attrs)
		case "start":
			s.ui.OnSharedVideoStart(from, p.Value, attrs)
		case "playing", "pause":
			s.ui.OnSharedVideoUpdate(from, p.Value, attrs)
		}
	})
}

func wireAttrs(attrs map[string]command.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v.Wire()
	}
	return out
}

// UpdateSharedVideo broadcasts shared-video playback state. Start, stop
// and playing are one-shot; pause is persisted so late joiners come up
// paused at the right position.
func (s *Session) UpdateSharedVideo(url, state string, position float64, muted bool, volume float64) {
	p := command.Payload{
		Value: url,
		Attributes: map[string]command.Attr{
			"state":  command.String(state),
			"time":   command.Number(position),
			"muted":  command.Bool(muted),
			"volume": command.Number(volume),
		},
	}
	switch state {
	case "stop", "start", "playing":
		s.cmds.ReplaceOnce(command.SharedVideo, p)
	default:
		s.cmds.Replace(command.SharedVideo, p)
	}
}

// SendChatMessage relays an outgoing chat message, informing the API
// notifier first.
func (s *Session) SendChatMessage(text string) {
	s.api.NotifySendingChatMessage(text)
	s.conf.SendTextMessage(text)
}

func (s *Session) SetSubject(subject string) {
	s.conf.SetSubject(subject)
}

func (s *Session) SetStartMutedPolicy(audio, video bool) {
	s.conf.SetStartMutedPolicy(audio, video)
}

func (s *Session) KickParticipant(id domain.ParticipantID) {
	s.conf.KickParticipant(id)
}

func (s *Session) MuteParticipant(id domain.ParticipantID) {
	s.conf.MuteParticipant(id)
}

// SelectEndpoint prioritizes a participant's video. Skipped when alone
// in the room, since the reporting channel is not available then.
func (s *Session) SelectEndpoint(id domain.ParticipantID) {
	if s.conf.ParticipantCount() == 0 {
		return
	}
	if err := s.conf.SelectParticipant(id); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("select participant failed")
	}
}

// PinEndpoint pins a remote participant on stage; a nil id unpins the
// last pinned one.
func (s *Session) PinEndpoint(id *domain.ParticipantID) {
	if err := s.conf.PinParticipant(id); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("pin participant failed")
	}
}

func (s *Session) Dial(sipNumber string) {
	if err := s.conf.Dial(sipNumber); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("dial failed")
	}
}

func (s *Session) ToggleRecording(options map[string]string) {
	s.conf.ToggleRecording(options)
}

// LogEvent forwards a structured application event to the engine's
// application log.
func (s *Session) LogEvent(name string, value int, label string) {
	b, err := json.Marshal(map[string]any{"name": name, "value": value, "label": label})
	if err != nil {
		return
	}
	s.conf.SendApplicationLog(string(b))
}
