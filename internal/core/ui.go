package core

import (
	"github.com/solivar/confab/internal/domain"
)

// UINotifier is the UI collaborator. The session layer pushes high-level
// notifications here and pulls the few pieces of UI state it needs; no
// rendering concern leaks into the core.
type UINotifier interface {
	// Connection / lifecycle.
	NotifyConnectionFailed(err *ConnectionError)
	NotifyTokenAuthFailed()
	NotifyReservationError(code, msg string)
	NotifyGracefulShutdown()
	NotifyInternalError()
	NotifyConferenceDestroyed(reason string)
	NotifyFocusDisconnected(focus string, retrySec string)
	NotifyMaxUsersLimitReached()
	NotifyKicked()
	NotifyChatError(code, msg string)
	// ShowPageReloadOverlay asks for a full reload; isNetworkFailure
	// selects the message flavor.
	ShowPageReloadOverlay(isNetworkFailure bool, reason string)
	ShowSuspendedOverlay()
	PromptPassword()

	// Media / devices.
	ShowPermissionsOverlay(environment string)
	HidePermissionsOverlay()
	// ShowDeviceErrorDialog presents the mic and/or camera error; either
	// argument may be nil.
	ShowDeviceErrorDialog(micErr, cameraErr error)
	ShowTrackNotWorkingDialog(kind domain.TrackKind)
	SetMicrophoneButtonEnabled(enabled bool)
	SetCameraButtonEnabled(enabled bool)
	OnAvailableDevicesChanged(devices []DeviceInfo)
	SetSelectedMicFromSettings()
	SetSelectedCameraFromSettings()
	SetSelectedAudioOutputFromSettings()

	// Screen sharing.
	ShowExtensionInstallDialog(url string)
	CloseExtensionInstallDialog()
	ShowExtensionRequiredDialog(url string)
	ShowScreenSharingFailedDialog(permissionDenied bool)
	// AskScreenShareSurface resolves the surface ambiguity with a user
	// choice on platforms that offer window vs full screen.
	AskScreenShareSurface(choose func(SurfaceMode))
	UpdateDesktopSharingButtons()

	// Participants and session state.
	AddUser(p *domain.Participant)
	RemoveUser(id domain.ParticipantID, displayName string)
	UpdateUserRole(p *domain.Participant)
	UpdateLocalRole(isModerator bool)
	ChangeDisplayName(id domain.ParticipantID, name string)
	SetUserEmail(id domain.ParticipantID, email string)
	SetUserAvatarURL(id domain.ParticipantID, url string)
	SetUserAvatarID(id domain.ParticipantID, avatarID string)
	SetAudioMuted(id domain.ParticipantID, muted bool)
	SetVideoMuted(id domain.ParticipantID, muted bool)
	SetRaisedHandStatus(id domain.ParticipantID, raised bool)
	SetLocalRaisedHandStatus(raised bool)
	MarkDominantSpeaker(id domain.ParticipantID)
	MarkVideoInterrupted(interrupted bool)
	ShowLocalConnectionInterrupted(interrupted bool)
	AddLocalStream(t LocalTrack)
	AddRemoteStream(t RemoteTrack)
	RemoveRemoteStream(t RemoteTrack)
	AddMessage(id domain.ParticipantID, displayName, text string)
	MucJoined()
	SetSubject(subject string)
	OnStartMutedChanged(audio, video bool)
	NotifyInitiallyMuted()
	UpdateRecordingState(state string)
	UpdateAuthInfo(enabled bool, login string)
	InitEtherpad(value string)
	OnSharedVideoStart(id domain.ParticipantID, url string, attrs map[string]string)
	OnSharedVideoUpdate(id domain.ParticipantID, url string, attrs map[string]string)
	OnSharedVideoStop(id domain.ParticipantID, attrs map[string]string)

	// Follow mode state hooks.
	IsFilmStripVisible() bool
	ToggleFilmStrip()
	IsSharedDocVisible() bool
	ToggleSharedDoc()
	PinnedID() (domain.ParticipantID, bool)
	HasThumbnail(id domain.ParticipantID) bool
	ClickThumbnail(id domain.ParticipantID)

	// Hangup.
	// RequestFeedback returns whether the thank-you dialog should still be
	// shown after hangup.
	RequestFeedback() (showThankYou bool, err error)
}
