package rtc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

const (
	devicePollInterval  = 3 * time.Second
	installPollInterval = time.Second
)

// DeviceBackend is the platform seam: it talks to the actual OS capture
// APIs. Everything above it is platform independent.
type DeviceBackend interface {
	// Devices enumerates the currently attached capture devices.
	Devices(ctx context.Context) ([]core.DeviceInfo, error)
	// OpenSource opens a device feed. deviceID "" picks the system
	// default. Failures come back as *core.DeviceError.
	OpenSource(ctx context.Context, kind domain.TrackKind, deviceID string) (Source, error)
	// OpenDesktopSource starts a screen capture for the given surface.
	// Returns *core.DeviceError with ExtensionRequired when a helper
	// component is missing; the install URL travels in Msg.
	OpenDesktopSource(ctx context.Context, mode core.SurfaceMode) (Source, error)
	DesktopSharingSupported() bool
	// PermissionPromptExpected reports whether the next capture will
	// raise an OS permission prompt, and for which environment.
	PermissionPromptExpected() (string, bool)
}

// CaptureService implements device capture over a DeviceBackend. Device
// hot swap is detected by polling the enumeration, since no portable
// change event exists.
type CaptureService struct {
	backend DeviceBackend

	mu            sync.Mutex
	known         []core.DeviceInfo
	devListeners  map[int]func([]core.DeviceInfo)
	permListeners map[int]func(environment string)
	nextID        int
	pollCancel    context.CancelFunc
}

func NewCaptureService(backend DeviceBackend) *CaptureService {
	return &CaptureService{
		backend:       backend,
		devListeners:  make(map[int]func([]core.DeviceInfo)),
		permListeners: make(map[int]func(string)),
	}
}

// Capture acquires one track per requested kind. Acquisition is all or
// nothing: when any kind fails, already opened tracks are disposed and
// the failure is returned.
func (s *CaptureService) Capture(ctx context.Context, req core.CaptureRequest, promptAware bool) ([]core.LocalTrack, error) {
	if promptAware {
		if env, expected := s.backend.PermissionPromptExpected(); expected {
			for _, l := range s.permListenersSnapshot() {
				l(env)
			}
		}
	}

	var tracks []core.LocalTrack
	for _, kind := range req.Kinds {
		t, err := s.captureOne(ctx, req, kind)
		if err != nil {
			for _, prev := range tracks {
				_ = prev.Dispose(ctx)
			}
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func (s *CaptureService) captureOne(ctx context.Context, req core.CaptureRequest, kind domain.TrackKind) (core.LocalTrack, error) {
	switch kind {
	case domain.TrackDesktop:
		return s.captureDesktop(ctx, req)
	case domain.TrackAudio:
		deviceID := ""
		if req.MicDeviceID != nil {
			deviceID = *req.MicDeviceID
		}
		return s.open(ctx, kind, deviceID)
	case domain.TrackVideo:
		deviceID := ""
		if req.CameraDeviceID != nil {
			deviceID = *req.CameraDeviceID
		}
		return s.open(ctx, kind, deviceID)
	default:
		return nil, &core.DeviceError{Kind: core.DeviceErrGeneral, Msg: "unknown track kind " + string(kind)}
	}
}

func (s *CaptureService) open(ctx context.Context, kind domain.TrackKind, deviceID string) (core.LocalTrack, error) {
	src, err := s.backend.OpenSource(ctx, kind, deviceID)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("kind", string(kind)).Str("device", deviceID).Msg("open source")
		return nil, err
	}
	return newLocalTrack(kind, deviceID, src)
}

// captureDesktop starts screen capture, driving the external install
// flow when the platform needs a helper component first.
func (s *CaptureService) captureDesktop(ctx context.Context, req core.CaptureRequest) (core.LocalTrack, error) {
	mode := req.SurfaceMode
	if mode == "" {
		mode = core.SurfaceScreen
	}

	src, err := s.backend.OpenDesktopSource(ctx, mode)
	if err == nil {
		return newLocalTrack(domain.TrackDesktop, string(mode), src)
	}

	var derr *core.DeviceError
	if !errors.As(err, &derr) || derr.Kind != core.DeviceErrExtensionRequired || req.DesktopInstall == nil {
		return nil, err
	}

	// The helper is missing and the caller wants the install flow: tell
	// the UI, then poll until the helper shows up or the user gives up.
	hook := req.DesktopInstall
	hook.OnStatus(core.InstallWaiting, derr.Msg)

	ticker := time.NewTicker(installPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, &core.DeviceError{Kind: core.DeviceErrUserCanceled}
		case <-ticker.C:
			if hook.InProgress != nil && !hook.InProgress() {
				return nil, &core.DeviceError{Kind: core.DeviceErrUserCanceled}
			}
			src, err = s.backend.OpenDesktopSource(ctx, mode)
			if err == nil {
				hook.OnStatus(core.InstallFound, "")
				return newLocalTrack(domain.TrackDesktop, string(mode), src)
			}
			if !errors.As(err, &derr) || derr.Kind != core.DeviceErrExtensionRequired {
				return nil, err
			}
		}
	}
}

func (s *CaptureService) EnumerateDevices(ctx context.Context) ([]core.DeviceInfo, error) {
	devices, err := s.backend.Devices(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.known = devices
	s.mu.Unlock()
	return devices, nil
}

func (s *CaptureService) IsDeviceListAvailable() bool   { return true }
func (s *CaptureService) IsDeviceChangeAvailable() bool { return true }

func (s *CaptureService) IsDesktopSharingEnabled() bool {
	return s.backend.DesktopSharingSupported()
}

// OnDeviceListChanged registers a hot-swap listener. The first listener
// starts the enumeration poll, the last removal stops it.
func (s *CaptureService) OnDeviceListChanged(fn func([]core.DeviceInfo)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.devListeners[id] = fn
	if s.pollCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.pollCancel = cancel
		go s.pollDevices(ctx)
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.devListeners, id)
		if len(s.devListeners) == 0 && s.pollCancel != nil {
			s.pollCancel()
			s.pollCancel = nil
		}
		s.mu.Unlock()
	}
}

func (s *CaptureService) OnPermissionPrompt(fn func(environment string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.permListeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.permListeners, id)
		s.mu.Unlock()
	}
}

func (s *CaptureService) permListenersSnapshot() []func(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]func(string), 0, len(s.permListeners))
	for _, l := range s.permListeners {
		out = append(out, l)
	}
	return out
}

func (s *CaptureService) pollDevices(ctx context.Context) {
	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			devices, err := s.backend.Devices(ctx)
			if err != nil {
				log.Warn().Err(err).Str("module", "rtc").Msg("device poll")
				continue
			}
			s.mu.Lock()
			changed := !sameDevices(s.known, devices)
			if changed {
				s.known = devices
			}
			listeners := make([]func([]core.DeviceInfo), 0, len(s.devListeners))
			for _, l := range s.devListeners {
				listeners = append(listeners, l)
			}
			s.mu.Unlock()

			if changed {
				log.Info().Str("module", "rtc").Int("count", len(devices)).Msg("device list changed")
				for _, l := range listeners {
					l(devices)
				}
			}
		}
	}
}

func sameDevices(a, b []core.DeviceInfo) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[core.DeviceInfo]struct{}, len(a))
	for _, d := range a {
		seen[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := seen[d]; !ok {
			return false
		}
	}
	return true
}
