package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// SetLocalTrack replaces the session's local track of the given media
// kind. The previous track is disposed first — disposal detaches it from
// the outgoing stream — and only then is the new track attached and
// reported active, so two local tracks of one kind are never attached at
// once. A nil track clears the slot and resets the derived flags.
func (s *Session) SetLocalTrack(ctx context.Context, kind domain.TrackKind, track core.LocalTrack) error {
	switch kind.MediaKind() {
	case domain.TrackAudio:
		return s.useAudioStream(ctx, track)
	case domain.TrackVideo:
		return s.useVideoStream(ctx, track)
	default:
		return errors.New("unknown media kind")
	}
}

func (s *Session) useVideoStream(ctx context.Context, track core.LocalTrack) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSessionDestroyed
	}
	old := s.localVideo
	s.localVideo = track
	s.mu.Unlock()

	if err := disposeQuiet(ctx, old); err != nil {
		return err
	}

	if track != nil {
		if err := s.conf.AddTrack(ctx, track); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if track != nil {
		s.videoMuted = track.IsMuted()
		s.isSharingScreen = track.Kind() == domain.TrackDesktop
	} else {
		s.videoMuted = false
		s.isSharingScreen = false
	}
	muted := s.videoMuted
	s.mu.Unlock()

	if track != nil {
		s.ui.AddLocalStream(track)
		if track.Kind() == domain.TrackVideo {
			s.ui.SetCameraButtonEnabled(true)
		}
	}
	s.ui.SetVideoMuted(s.conf.MyID(), muted)
	s.ui.UpdateDesktopSharingButtons()
	return nil
}

func (s *Session) useAudioStream(ctx context.Context, track core.LocalTrack) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSessionDestroyed
	}
	old := s.localAudio
	s.localAudio = track
	s.mu.Unlock()

	if err := disposeQuiet(ctx, old); err != nil {
		return err
	}

	if track != nil {
		if err := s.conf.AddTrack(ctx, track); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if track != nil {
		s.audioMuted = track.IsMuted()
	} else {
		s.audioMuted = false
	}
	muted := s.audioMuted
	s.mu.Unlock()

	if track != nil {
		s.ui.AddLocalStream(track)
	}
	s.ui.SetMicrophoneButtonEnabled(true)
	s.ui.SetAudioMuted(s.conf.MyID(), muted)
	return nil
}

// disposeQuiet swallows a double dispose and re-raises anything else.
func disposeQuiet(ctx context.Context, t core.LocalTrack) error {
	if t == nil {
		return nil
	}
	if err := t.Dispose(ctx); err != nil && !errors.Is(err, core.ErrTrackDisposed) {
		return err
	}
	return nil
}

// MuteAudio mutes or unmutes the local audio stream if it exists.
func (s *Session) MuteAudio(ctx context.Context, muted bool) {
	s.mu.Lock()
	t := s.localAudio
	s.mu.Unlock()
	muteLocalMedia(ctx, t, muted, "audio")
}

// MuteVideo mutes or unmutes the local video stream if it exists.
func (s *Session) MuteVideo(ctx context.Context, muted bool) {
	s.mu.Lock()
	t := s.localVideo
	s.mu.Unlock()
	muteLocalMedia(ctx, t, muted, "video")
}

func muteLocalMedia(ctx context.Context, t core.LocalTrack, muted bool, what string) {
	if t == nil {
		return
	}
	var err error
	if muted {
		err = t.Mute(ctx)
	} else {
		err = t.Unmute(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Str("media", what).Bool("muted", muted).Msg("mute request rejected")
	}
}

func (s *Session) ToggleAudioMuted(ctx context.Context) {
	s.MuteAudio(ctx, !s.IsLocalAudioMuted())
}

func (s *Session) ToggleVideoMuted(ctx context.Context) {
	s.MuteVideo(ctx, !s.IsLocalVideoMuted())
}

// ToggleScreenSharing switches the video slot between camera and desktop
// capture. Re-entrant calls while a switch is in progress are rejected
// with a warning; the busy flag is cleared exactly once on every path.
func (s *Session) ToggleScreenSharing(ctx context.Context, shareScreen bool) {
	s.mu.Lock()
	if s.videoSwitchInProgress {
		s.mu.Unlock()
		log.Warn().Str("module", "session").Msg("screen share switch already in progress")
		return
	}
	if !s.desktopSharingEnabled {
		s.mu.Unlock()
		log.Warn().Str("module", "session").Msg("cannot toggle screen sharing: not supported")
		return
	}
	s.videoSwitchInProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.videoSwitchInProgress = false
		s.mu.Unlock()
	}()

	if shareScreen {
		s.startScreenShare(ctx)
	} else {
		s.stopScreenShare(ctx)
	}
}

func (s *Session) startScreenShare(ctx context.Context) {
	// Some platforms offer both window and full-screen capture; defer to
	// a user choice before proceeding.
	mode := core.SurfaceWindow
	s.ui.AskScreenShareSurface(func(m core.SurfaceMode) { mode = m })

	hook := &core.DesktopInstallHook{
		InProgress: func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.extInstallInProgress
		},
		OnStatus: func(status, url string) {
			switch status {
			case core.InstallWaiting:
				s.mu.Lock()
				s.extInstallInProgress = true
				s.mu.Unlock()
				s.ui.ShowExtensionInstallDialog(url)
			case core.InstallFound:
				s.ui.CloseExtensionInstallDialog()
			}
		},
	}

	tracks, err := s.factory.Create(ctx, core.CaptureRequest{
		Kinds:          []domain.TrackKind{domain.TrackDesktop},
		DesktopInstall: hook,
		SurfaceMode:    mode,
	}, false)
	if err != nil {
		s.ui.CloseExtensionInstallDialog()
		s.handleScreenShareError(ctx, err)
		return
	}

	s.mu.Lock()
	s.extInstallInProgress = false
	s.mu.Unlock()
	s.ui.CloseExtensionInstallDialog()

	if len(tracks) == 0 {
		return
	}
	stream := tracks[0]
	stream.OnStopped(func() {
		// The capture was ended out-of-band (system UI); switch back to
		// camera unless we already did.
		if s.IsSharingScreen() {
			s.ToggleScreenSharing(context.Background(), false)
		}
	})

	if err := s.useVideoStream(ctx, stream); err != nil {
		s.handleScreenShareError(ctx, err)
		return
	}
	log.Info().Str("module", "session").Msg("sharing local desktop")
}

func (s *Session) stopScreenShare(ctx context.Context) {
	tracks, err := s.factory.Create(ctx, core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackVideo},
	}, false)
	if err != nil || len(tracks) == 0 {
		if uerr := s.useVideoStream(ctx, nil); uerr != nil {
			log.Error().Err(uerr).Str("module", "session").Msg("failed to clear video slot")
		}
		log.Error().Err(err).Str("module", "session").Msg("failed to switch back to camera")
		return
	}
	if err := s.useVideoStream(ctx, tracks[0]); err != nil {
		log.Error().Err(err).Str("module", "session").Msg("failed to attach camera after screen share")
		return
	}
	log.Info().Str("module", "session").Msg("sharing local video")
}

func (s *Session) handleScreenShareError(ctx context.Context, err error) {
	log.Error().Err(err).Str("module", "session").Msg("failed to share local desktop")

	// Fall back to the camera inside the same switch; the busy flag is
	// still held, so this cannot re-enter ToggleScreenSharing.
	s.stopScreenShare(ctx)

	var derr *core.DeviceError
	if errors.As(err, &derr) {
		switch derr.Kind {
		case core.DeviceErrUserCanceled:
			return
		case core.DeviceErrExtensionRequired:
			s.ui.ShowExtensionRequiredDialog(s.cfg.DesktopExtensionURL)
			return
		case core.DeviceErrPermissionDenied:
			s.ui.ShowScreenSharingFailedDialog(true)
			return
		}
	}
	s.ui.ShowScreenSharingFailedDialog(false)
}
