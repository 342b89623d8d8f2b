// Package media owns local capture acquisition: the initial
// audio+video/audio-only/nothing fallback ladder, device id resolution
// against persisted settings, and the per-track stalled watchdog.
package media

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// AcquireErrors records which acquisition steps failed. The caller picks
// the device error dialog from which slots are populated: both set means
// the microphone is suspect, only AudioVideo set means the camera is.
type AcquireErrors struct {
	AudioVideo error
	AudioOnly  error
}

func (e AcquireErrors) Empty() bool { return e.AudioVideo == nil && e.AudioOnly == nil }

type Factory struct {
	capture  core.CaptureService
	settings core.Settings
	ui       core.UINotifier
}

func NewFactory(capture core.CaptureService, settings core.Settings, ui core.UINotifier) *Factory {
	return &Factory{capture: capture, settings: settings, ui: ui}
}

// AcquireInitial attempts audio+video together; on failure retries audio
// only, recording both errors; on total failure returns an empty track
// list. No further escalation happens here.
func (f *Factory) AcquireInitial(ctx context.Context) ([]core.LocalTrack, AcquireErrors) {
	var errs AcquireErrors

	tracks, err := f.Create(ctx, core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio, domain.TrackVideo},
	}, true)
	if err == nil {
		return tracks, errs
	}
	errs.AudioVideo = err

	tracks, err = f.Create(ctx, core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio},
	}, true)
	if err == nil {
		return tracks, errs
	}
	errs.AudioOnly = err

	return nil, errs
}

// Create acquires the requested tracks. Device ids left nil resolve
// independently to the persisted default for that field. Every acquired
// track gets the no-data watchdog attached, forwarded to the UI
// collaborator unchanged.
func (f *Factory) Create(ctx context.Context, req core.CaptureRequest, promptAware bool) ([]core.LocalTrack, error) {
	if req.CameraDeviceID == nil {
		id := f.settings.CameraDeviceID()
		req.CameraDeviceID = &id
	}
	if req.MicDeviceID == nil {
		id := f.settings.MicDeviceID()
		req.MicDeviceID = &id
	}

	tracks, err := f.capture.Capture(ctx, req, promptAware)
	if err != nil {
		log.Error().Err(err).Str("module", "media").Interface("kinds", req.Kinds).Msg("failed to create local tracks")
		return nil, err
	}

	for _, t := range tracks {
		track := t
		track.OnStalled(func() {
			f.ui.ShowTrackNotWorkingDialog(track.Kind())
		})
	}
	return tracks, nil
}

// ReportAcquireErrors maps the error pair onto the matching device error
// dialog. Both steps failing points at the microphone; only the combined
// request failing points at the camera.
func ReportAcquireErrors(ui core.UINotifier, errs AcquireErrors) {
	if errs.AudioVideo == nil {
		return
	}
	if errs.AudioOnly != nil {
		ui.ShowDeviceErrorDialog(errs.AudioOnly, nil)
	} else {
		ui.ShowDeviceErrorDialog(nil, errs.AudioVideo)
	}
}
