package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
	"github.com/solivar/confab/internal/media"
)

// initDeviceList enumerates the devices once, syncs the real device ids
// of the active tracks back into settings, and subscribes to hot-swap
// notifications.
func (s *Session) initDeviceList(ctx context.Context) {
	if !s.capture.IsDeviceListAvailable() || !s.capture.IsDeviceChangeAvailable() {
		return
	}

	devices, err := s.capture.EnumerateDevices(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("device enumeration failed")
		return
	}

	s.mu.Lock()
	if s.localAudio != nil {
		s.settings.SetMicDeviceID(s.localAudio.DeviceID(), false)
	}
	if s.localVideo != nil {
		s.settings.SetCameraDeviceID(s.localVideo.DeviceID(), false)
	}
	s.knownDevices = devices
	s.mu.Unlock()

	s.ui.OnAvailableDevicesChanged(devices)

	remove := s.capture.OnDeviceListChanged(func(updated []core.DeviceInfo) {
		s.OnDeviceListChanged(context.Background(), updated)
	})
	s.mu.Lock()
	s.removeDeviceListener = remove
	s.mu.Unlock()
}

// OnDeviceListChanged reconciles the session with a changed device
// enumeration: vanished active devices are substituted with the new
// default, and the replacement track is re-muted when the old one was
// muted or when the substitution was not the user's choice. Overlapping
// reconciliations are serialized; the most recent call is authoritative
// and cancels the one in flight.
func (s *Session) OnDeviceListChanged(ctx context.Context, updated []core.DeviceInfo) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	if s.reconcileCancel != nil {
		s.reconcileCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.reconcileCancel = cancel
	s.reconcileSeq++
	seq := s.reconcileSeq

	old := s.knownDevices
	// The change event can fire before the first direct enumeration.
	if len(old) == 0 {
		old = updated
	}
	sharingScreen := s.isSharingScreen
	audioWasMuted := s.audioMuted
	videoWasMuted := s.videoMuted
	var currentAudioID, currentVideoID string
	if s.localAudio != nil {
		currentAudioID = s.localAudio.DeviceID()
	}
	if s.localVideo != nil && !sharingScreen {
		currentVideoID = s.localVideo.DeviceID()
	}
	s.mu.Unlock()

	nd := media.DiffAfterChange(old, updated, sharingScreen, currentAudioID, currentVideoID, s.settings.AudioOutputDeviceID())

	if nd.AudioOutput != nil {
		// Best effort; a failed speaker switch only logs.
		if err := s.settings.SetAudioOutputDeviceID(*nd.AudioOutput); err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("audio output substitution failed")
		}
	}

	audioVanished := media.VanishedCount(old, updated, core.DeviceAudioInput) > 0
	videoVanished := media.VanishedCount(old, updated, core.DeviceVideoInput) > 0

	if nd.AudioInput != nil {
		s.reacquire(ctx, seq, domain.TrackAudio, core.CaptureRequest{
			Kinds:       []domain.TrackKind{domain.TrackAudio},
			MicDeviceID: nd.AudioInput,
		}, audioWasMuted || audioVanished)
	}
	if nd.VideoInput != nil {
		s.reacquire(ctx, seq, domain.TrackVideo, core.CaptureRequest{
			Kinds:          []domain.TrackKind{domain.TrackVideo},
			CameraDeviceID: nd.VideoInput,
		}, videoWasMuted || videoVanished)
	}

	s.mu.Lock()
	if seq == s.reconcileSeq {
		s.knownDevices = updated
	}
	s.mu.Unlock()
	s.ui.OnAvailableDevicesChanged(updated)
}

// reacquire captures a substitute track and swaps it in, unless a newer
// reconciliation superseded this one in the meantime.
func (s *Session) reacquire(ctx context.Context, seq uint64, kind domain.TrackKind, req core.CaptureRequest, muteAfter bool) {
	tracks, err := s.factory.Create(ctx, req, false)
	if err != nil || len(tracks) == 0 {
		log.Error().Err(err).Str("module", "session").Str("kind", string(kind)).Msg("failed to re-acquire after device change")
		return
	}
	track := tracks[0]

	s.mu.Lock()
	stale := seq != s.reconcileSeq || s.destroyed
	s.mu.Unlock()
	if stale || ctx.Err() != nil {
		if derr := disposeQuiet(context.Background(), track); derr != nil {
			log.Warn().Err(derr).Str("module", "session").Msg("dispose of superseded reconcile track")
		}
		return
	}

	if err := s.SetLocalTrack(ctx, kind, track); err != nil {
		log.Error().Err(err).Str("module", "session").Str("kind", string(kind)).Msg("failed to attach substitute track")
		return
	}
	if muteAfter {
		if kind == domain.TrackAudio {
			s.MuteAudio(ctx, true)
		} else {
			s.MuteVideo(ctx, true)
		}
	}
}

// ChangeCameraDevice switches to an explicitly chosen camera. On failure
// the settings menu is rolled back to the persisted selection.
func (s *Session) ChangeCameraDevice(ctx context.Context, cameraDeviceID string) {
	tracks, err := s.factory.Create(ctx, core.CaptureRequest{
		Kinds:          []domain.TrackKind{domain.TrackVideo},
		CameraDeviceID: &cameraDeviceID,
	}, false)
	if err != nil || len(tracks) == 0 {
		s.ui.ShowDeviceErrorDialog(nil, err)
		s.ui.SetSelectedCameraFromSettings()
		return
	}
	if err := s.SetLocalTrack(ctx, domain.TrackVideo, tracks[0]); err != nil {
		log.Error().Err(err).Str("module", "session").Msg("failed to switch camera")
		return
	}
	log.Info().Str("module", "session").Msg("switched local video device")
	s.settings.SetCameraDeviceID(cameraDeviceID, true)
}

// ChangeAudioDevice switches to an explicitly chosen microphone.
func (s *Session) ChangeAudioDevice(ctx context.Context, micDeviceID string) {
	tracks, err := s.factory.Create(ctx, core.CaptureRequest{
		Kinds:       []domain.TrackKind{domain.TrackAudio},
		MicDeviceID: &micDeviceID,
	}, false)
	if err != nil || len(tracks) == 0 {
		s.ui.ShowDeviceErrorDialog(err, nil)
		s.ui.SetSelectedMicFromSettings()
		return
	}
	if err := s.SetLocalTrack(ctx, domain.TrackAudio, tracks[0]); err != nil {
		log.Error().Err(err).Str("module", "session").Msg("failed to switch microphone")
		return
	}
	log.Info().Str("module", "session").Msg("switched local audio device")
	s.settings.SetMicDeviceID(micDeviceID, true)
}

// ChangeAudioOutputDevice switches the speaker; the previous selection
// stays in effect when the switch fails.
func (s *Session) ChangeAudioOutputDevice(audioOutputDeviceID string) {
	if err := s.settings.SetAudioOutputDeviceID(audioOutputDeviceID); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("failed to change audio output device")
		s.ui.SetSelectedAudioOutputFromSettings()
		return
	}
	log.Info().Str("module", "session").Msg("changed audio output device")
}
