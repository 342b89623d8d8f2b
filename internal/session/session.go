// Package session owns the conference lifecycle after a connection is
// established: local media attachment, mute/role/screen-share state,
// device hot-swap reconciliation, and the fan-out of every session-level
// event to the UI and API collaborators.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/config"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
	"github.com/solivar/confab/internal/media"
)

var ErrSessionDestroyed = errors.New("session destroyed")

// Deps carries the collaborators of a session. One explicit context
// object instead of cross-file singletons; the constructor owns it.
type Deps struct {
	Engine   core.Engine
	Conf     core.Conference
	UI       core.UINotifier
	API      core.APINotifier
	Settings core.Settings
	Capture  core.CaptureService
	Factory  *media.Factory
	Auth     AuthEscalator
	Cfg      *config.Config
	// Reload requests a full process restart.
	Reload func()
}

// Session is one joined conference room. Created on successful connect,
// destroyed on hangup, not reusable afterwards. It is the exclusive
// owner of the local track references: nobody else disposes them.
type Session struct {
	mu sync.Mutex

	engine   core.Engine
	conf     core.Conference
	ui       core.UINotifier
	api      core.APINotifier
	settings core.Settings
	capture  core.CaptureService
	factory  *media.Factory
	auth     AuthEscalator
	cfg      *config.Config
	reload   func()

	cmds *command.Channel
	room domain.RoomName

	localAudio core.LocalTrack
	localVideo core.LocalTrack

	audioMuted            bool
	videoMuted            bool
	isSharingScreen       bool
	isModerator           bool
	isHandRaised          bool
	isDominantSpeaker     bool
	desktopSharingEnabled bool
	videoSwitchInProgress bool
	// extInstallInProgress guards the external extension installation
	// flow; owned here, never package-level.
	extInstallInProgress bool

	removeDeviceListener func()
	removeConfObserver   func()
	knownDevices         []core.DeviceInfo

	// Device reconciliation is cancel-and-replace: the newest call wins.
	reconcileCancel context.CancelFunc
	reconcileSeq    uint64

	destroyed bool
}

func New(room domain.RoomName, deps Deps) *Session {
	s := &Session{
		engine:   deps.Engine,
		conf:     deps.Conf,
		ui:       deps.UI,
		api:      deps.API,
		settings: deps.Settings,
		capture:  deps.Capture,
		factory:  deps.Factory,
		auth:     deps.Auth,
		cfg:      deps.Cfg,
		reload:   deps.Reload,
		cmds:     command.NewChannel(deps.Conf),
		room:     room,
	}
	if s.reload == nil {
		s.reload = func() {}
	}
	return s
}

// Start attaches the initial local tracks, publishes the local profile,
// wires all listeners and joins the room, blocking until joined or a
// terminal failure.
func (s *Session) Start(ctx context.Context, tracks []core.LocalTrack) error {
	s.mu.Lock()
	s.desktopSharingEnabled = s.capture.IsDesktopSharingEnabled()
	s.mu.Unlock()

	for _, t := range tracks {
		kind := t.Kind().MediaKind()
		if kind != domain.TrackAudio && kind != domain.TrackVideo {
			log.Error().Str("module", "session").Str("kind", string(t.Kind())).Msg("ignored not an audio nor a video track")
			continue
		}
		if err := s.SetLocalTrack(ctx, kind, t); err != nil {
			log.Error().Err(err).Str("module", "session").Str("kind", string(kind)).Msg("failed to attach initial track")
		}
	}

	s.shareProfile()

	if name := s.settings.DisplayName(); name != "" {
		s.conf.SetDisplayName(name)
	}

	s.setupListeners()
	s.setupCommandListeners()
	s.initDeviceList(ctx)

	connector := NewConnector(s.conf, s.engine, s.ui, s.auth, ConnectorOptions{
		RetryDelay: s.cfg.AuthRetryDelay,
		Reload:     s.reload,
	})
	return connector.Connect(ctx)
}

// shareProfile publishes email/avatar over the command channel, each as
// remove-then-send so late joiners see exactly one entry.
func (s *Session) shareProfile() {
	if email := s.settings.Email(); email != "" {
		s.cmds.ShareValue(command.Email, email)
	} else if avatarID := s.settings.AvatarID(); avatarID != "" {
		s.cmds.ShareValue(command.AvatarID, avatarID)
	}
	if url := s.settings.AvatarURL(); url != "" {
		s.cmds.ShareValue(command.AvatarURL, url)
	}
}

func (s *Session) Room() domain.RoomName { return s.room }

// Commands exposes the command channel so command-based features
// (follow mode, shared video) ride on the joined session.
func (s *Session) Commands() *command.Channel { return s.cmds }

func (s *Session) MyID() domain.ParticipantID { return s.conf.MyID() }

func (s *Session) IsLocalID(id domain.ParticipantID) bool { return s.conf.MyID() == id }

func (s *Session) IsModerator() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isModerator
}

func (s *Session) IsParticipantModerator(id domain.ParticipantID) bool {
	p, ok := s.conf.ParticipantByID(id)
	return ok && p.IsModerator()
}

func (s *Session) IsLocalAudioMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioMuted
}

func (s *Session) IsLocalVideoMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoMuted
}

func (s *Session) IsSharingScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSharingScreen
}

// DisplayName resolves a participant's display name, falling back to the
// local persisted one for the local id.
func (s *Session) DisplayName(id domain.ParticipantID) string {
	if s.IsLocalID(id) {
		return s.settings.DisplayName()
	}
	if p, ok := s.conf.ParticipantByID(id); ok {
		return p.DisplayName
	}
	return ""
}

// ChangeLocalDisplayName trims, persists and propagates a new local
// display name. No-op when unchanged.
func (s *Session) ChangeLocalDisplayName(name string) {
	trimmed := domain.TrimDisplayName(name)
	if trimmed == s.settings.DisplayName() {
		return
	}
	s.settings.SetDisplayName(trimmed)
	s.conf.SetDisplayName(trimmed)
	s.ui.ChangeDisplayName(s.conf.MyID(), trimmed)
}

// ChangeLocalEmail persists and broadcasts a new email. No-op when
// unchanged.
func (s *Session) ChangeLocalEmail(email string) {
	if email == s.settings.Email() {
		return
	}
	s.settings.SetEmail(email)
	s.ui.SetUserEmail(s.conf.MyID(), email)
	s.cmds.ShareValue(command.Email, email)
}

// SetRaisedHand advertises the local raised-hand flag. No-op when
// unchanged.
func (s *Session) SetRaisedHand(raised bool) {
	s.mu.Lock()
	if s.isHandRaised == raised {
		s.mu.Unlock()
		return
	}
	s.isHandRaised = raised
	s.mu.Unlock()

	s.conf.SetLocalParticipantProperty("raisedHand", boolWire(raised))
	s.ui.SetLocalRaisedHandStatus(raised)
}

func (s *Session) ToggleRaisedHand() {
	s.mu.Lock()
	raised := s.isHandRaised
	s.mu.Unlock()
	s.SetRaisedHand(!raised)
}

func boolWire(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Hangup leaves the conference, optionally requesting feedback first.
// Every step tolerates failure so teardown always completes.
func (s *Session) Hangup(ctx context.Context, requestFeedback bool) {
	showThankYou := true
	if requestFeedback {
		ok, err := s.ui.RequestFeedback()
		if err != nil {
			showThankYou = false
		} else {
			showThankYou = ok
		}
	}

	s.mu.Lock()
	s.destroyed = true
	removeDev := s.removeDeviceListener
	removeObs := s.removeConfObserver
	s.removeDeviceListener = nil
	s.removeConfObserver = nil
	s.mu.Unlock()

	if removeDev != nil {
		removeDev()
	}

	s.disposeLocalTracks(ctx)

	if err := s.conf.Leave(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("leave failed on hangup")
	}
	if err := s.engine.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("disconnect failed on hangup")
	}
	if removeObs != nil {
		removeObs()
	}
	s.api.NotifyConferenceLeft(s.room)
	s.api.NotifyReadyToClose()
	_ = showThankYou // the outer app shell decides on the goodbye page
}

func (s *Session) disposeLocalTracks(ctx context.Context) {
	s.mu.Lock()
	audio, video := s.localAudio, s.localVideo
	s.localAudio, s.localVideo = nil, nil
	s.mu.Unlock()

	for _, t := range []core.LocalTrack{audio, video} {
		if t == nil {
			continue
		}
		if err := t.Dispose(ctx); err != nil && !errors.Is(err, core.ErrTrackDisposed) {
			log.Warn().Err(err).Str("module", "session").Str("kind", string(t.Kind())).Msg("dispose on teardown")
		}
	}
}

// Logout runs the de-authentication flow; the returned URL, when
// non-empty, is where the app shell should send the user.
func (s *Session) Logout(ctx context.Context) (string, error) {
	url, err := s.conf.Logout(ctx)
	if err != nil {
		return "", err
	}
	if url == "" {
		s.Hangup(ctx, true)
	}
	return url, nil
}
