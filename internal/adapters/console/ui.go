// Package console holds the headless implementations of the UI and auth
// collaborators: notifications become log lines, and the little interface
// state the session reads back (pinned id, filmstrip visibility) is kept
// in memory.
package console

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// UI implements the UI collaborator for a headless run.
type UI struct {
	mu         sync.Mutex
	filmstrip  bool
	sharedDoc  bool
	pinned     *domain.ParticipantID
	thumbnails map[domain.ParticipantID]struct{}
}

func NewUI() *UI {
	return &UI{
		filmstrip:  true,
		thumbnails: make(map[domain.ParticipantID]struct{}),
	}
}

func (u *UI) NotifyConnectionFailed(err *core.ConnectionError) {
	log.Error().Err(err).Str("module", "console").Msg("connection failed")
}

func (u *UI) NotifyTokenAuthFailed() {
	log.Error().Str("module", "console").Msg("token auth failed")
}

func (u *UI) NotifyReservationError(code, msg string) {
	log.Error().Str("module", "console").Str("code", code).Str("msg", msg).Msg("reservation error")
}

func (u *UI) NotifyGracefulShutdown() {
	log.Warn().Str("module", "console").Msg("server is shutting down gracefully")
}

func (u *UI) NotifyInternalError() {
	log.Error().Str("module", "console").Msg("internal error")
}

func (u *UI) NotifyConferenceDestroyed(reason string) {
	log.Warn().Str("module", "console").Str("reason", reason).Msg("conference destroyed")
}

func (u *UI) NotifyFocusDisconnected(focus string, retrySec string) {
	log.Warn().Str("module", "console").Str("focus", focus).Str("retry_sec", retrySec).Msg("focus disconnected")
}

func (u *UI) NotifyMaxUsersLimitReached() {
	log.Warn().Str("module", "console").Msg("room is full")
}

func (u *UI) NotifyKicked() {
	log.Warn().Str("module", "console").Msg("kicked from the room")
}

func (u *UI) NotifyChatError(code, msg string) {
	log.Warn().Str("module", "console").Str("code", code).Str("msg", msg).Msg("chat error")
}

func (u *UI) ShowPageReloadOverlay(isNetworkFailure bool, reason string) {
	log.Error().Str("module", "console").Bool("network", isNetworkFailure).Str("reason", reason).Msg("reload required")
}

func (u *UI) ShowSuspendedOverlay() {
	log.Warn().Str("module", "console").Msg("host suspended, rejoin to continue")
}

func (u *UI) PromptPassword() {
	log.Warn().Str("module", "console").Msg("room is locked and no password was configured")
}

func (u *UI) ShowPermissionsOverlay(environment string) {
	log.Info().Str("module", "console").Str("environment", environment).Msg("waiting for device permissions")
}

func (u *UI) HidePermissionsOverlay() {}

func (u *UI) ShowDeviceErrorDialog(micErr, cameraErr error) {
	ev := log.Warn().Str("module", "console")
	if micErr != nil {
		ev = ev.AnErr("mic", micErr)
	}
	if cameraErr != nil {
		ev = ev.AnErr("camera", cameraErr)
	}
	ev.Msg("device error")
}

func (u *UI) ShowTrackNotWorkingDialog(kind domain.TrackKind) {
	log.Warn().Str("module", "console").Str("kind", string(kind)).Msg("track produces no data")
}

func (u *UI) SetMicrophoneButtonEnabled(enabled bool) {}
func (u *UI) SetCameraButtonEnabled(enabled bool)     {}

func (u *UI) OnAvailableDevicesChanged(devices []core.DeviceInfo) {
	log.Info().Str("module", "console").Int("count", len(devices)).Msg("available devices changed")
}

func (u *UI) SetSelectedMicFromSettings()         {}
func (u *UI) SetSelectedCameraFromSettings()      {}
func (u *UI) SetSelectedAudioOutputFromSettings() {}

func (u *UI) ShowExtensionInstallDialog(url string) {
	log.Info().Str("module", "console").Str("url", url).Msg("screen share helper required")
}

func (u *UI) CloseExtensionInstallDialog() {}

func (u *UI) ShowExtensionRequiredDialog(url string) {
	log.Warn().Str("module", "console").Str("url", url).Msg("screen share helper must be installed")
}

func (u *UI) ShowScreenSharingFailedDialog(permissionDenied bool) {
	log.Warn().Str("module", "console").Bool("permission_denied", permissionDenied).Msg("screen sharing failed")
}

// AskScreenShareSurface always picks the full screen; a headless run has
// no window picker.
func (u *UI) AskScreenShareSurface(choose func(core.SurfaceMode)) {
	choose(core.SurfaceScreen)
}

func (u *UI) UpdateDesktopSharingButtons() {}

func (u *UI) AddUser(p *domain.Participant) {
	u.mu.Lock()
	u.thumbnails[p.ID] = struct{}{}
	u.mu.Unlock()
}

func (u *UI) RemoveUser(id domain.ParticipantID, displayName string) {
	u.mu.Lock()
	delete(u.thumbnails, id)
	if u.pinned != nil && *u.pinned == id {
		u.pinned = nil
	}
	u.mu.Unlock()
}

func (u *UI) UpdateUserRole(p *domain.Participant) {}

func (u *UI) UpdateLocalRole(isModerator bool) {
	log.Info().Str("module", "console").Bool("moderator", isModerator).Msg("local role updated")
}

func (u *UI) ChangeDisplayName(id domain.ParticipantID, name string) {}
func (u *UI) SetUserEmail(id domain.ParticipantID, email string)     {}
func (u *UI) SetUserAvatarURL(id domain.ParticipantID, url string)   {}
func (u *UI) SetUserAvatarID(id domain.ParticipantID, avatarID string) {}

func (u *UI) SetAudioMuted(id domain.ParticipantID, muted bool) {}
func (u *UI) SetVideoMuted(id domain.ParticipantID, muted bool) {}

func (u *UI) SetRaisedHandStatus(id domain.ParticipantID, raised bool) {
	log.Info().Str("module", "console").Str("id", string(id)).Bool("raised", raised).Msg("raised hand")
}

func (u *UI) SetLocalRaisedHandStatus(raised bool) {}

func (u *UI) MarkDominantSpeaker(id domain.ParticipantID) {
	log.Debug().Str("module", "console").Str("id", string(id)).Msg("dominant speaker")
}

func (u *UI) MarkVideoInterrupted(interrupted bool)             {}
func (u *UI) ShowLocalConnectionInterrupted(interrupted bool)   {}
func (u *UI) AddLocalStream(t core.LocalTrack)                  {}
func (u *UI) AddRemoteStream(t core.RemoteTrack)                {}
func (u *UI) RemoveRemoteStream(t core.RemoteTrack)             {}

func (u *UI) AddMessage(id domain.ParticipantID, displayName, text string) {
	log.Info().Str("module", "console").Str("from", displayName).Str("text", text).Msg("chat")
}

func (u *UI) MucJoined() {
	log.Info().Str("module", "console").Msg("room joined")
}

func (u *UI) SetSubject(subject string) {
	log.Info().Str("module", "console").Str("subject", subject).Msg("subject")
}

func (u *UI) OnStartMutedChanged(audio, video bool) {}

func (u *UI) NotifyInitiallyMuted() {
	log.Info().Str("module", "console").Msg("started muted by moderator policy")
}

func (u *UI) UpdateRecordingState(state string) {
	log.Info().Str("module", "console").Str("state", state).Msg("recording")
}

func (u *UI) UpdateAuthInfo(enabled bool, login string) {
	log.Info().Str("module", "console").Bool("enabled", enabled).Str("login", login).Msg("auth status")
}

func (u *UI) InitEtherpad(value string) {
	log.Info().Str("module", "console").Str("pad", value).Msg("shared document available")
}

func (u *UI) OnSharedVideoStart(id domain.ParticipantID, url string, attrs map[string]string) {
	log.Info().Str("module", "console").Str("url", url).Msg("shared video started")
}

func (u *UI) OnSharedVideoUpdate(id domain.ParticipantID, url string, attrs map[string]string) {}

func (u *UI) OnSharedVideoStop(id domain.ParticipantID, attrs map[string]string) {}

func (u *UI) IsFilmStripVisible() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.filmstrip
}

func (u *UI) ToggleFilmStrip() {
	u.mu.Lock()
	u.filmstrip = !u.filmstrip
	u.mu.Unlock()
}

func (u *UI) IsSharedDocVisible() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sharedDoc
}

func (u *UI) ToggleSharedDoc() {
	u.mu.Lock()
	u.sharedDoc = !u.sharedDoc
	u.mu.Unlock()
}

func (u *UI) PinnedID() (domain.ParticipantID, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.pinned == nil {
		return "", false
	}
	return *u.pinned, true
}

func (u *UI) HasThumbnail(id domain.ParticipantID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.thumbnails[id]
	return ok
}

// ClickThumbnail toggles the pin, the way clicking a tile does.
func (u *UI) ClickThumbnail(id domain.ParticipantID) {
	u.mu.Lock()
	if u.pinned != nil && *u.pinned == id {
		u.pinned = nil
	} else {
		u.pinned = &id
	}
	u.mu.Unlock()
}

// RequestFeedback has nothing to ask in a headless run.
func (u *UI) RequestFeedback() (bool, error) { return true, nil }
