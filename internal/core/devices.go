package core

import (
	"context"

	"github.com/solivar/confab/internal/domain"
)

// DeviceKind enumerates the logical device classes.
type DeviceKind string

const (
	DeviceAudioInput  DeviceKind = "audioinput"
	DeviceVideoInput  DeviceKind = "videoinput"
	DeviceAudioOutput DeviceKind = "audiooutput"
)

type DeviceInfo struct {
	DeviceID string
	Kind     DeviceKind
	Label    string
}

// CaptureRequest describes the local tracks to acquire. A nil device id
// pointer means "resolve this field to its persisted default"; a set
// pointer is an explicit choice. Each field resolves independently.
type CaptureRequest struct {
	Kinds          []domain.TrackKind
	CameraDeviceID *string
	MicDeviceID    *string
	// DesktopInstall configures the extension-external-installation hook
	// used by desktop capture on platforms that need it.
	DesktopInstall *DesktopInstallHook
	// SurfaceMode selects the screen-share surface on platforms that
	// distinguish window from full-screen capture.
	SurfaceMode SurfaceMode
}

type SurfaceMode string

const (
	SurfaceWindow SurfaceMode = "window"
	SurfaceScreen SurfaceMode = "screen"
)

// DesktopInstallHook lets the capture service drive an external browser
// extension installation. InProgress is polled at Interval; OnStatus
// receives "waiting-for-extension" with the install URL and then
// "extension-found".
type DesktopInstallHook struct {
	InProgress func() bool
	OnStatus   func(status, url string)
}

const (
	InstallWaiting = "waiting-for-extension"
	InstallFound   = "extension-found"
)

// CaptureService is the device capture collaborator, the engine-side
// equivalent of getUserMedia.
type CaptureService interface {
	// Capture acquires local tracks. When promptAware is true the service
	// reports the OS permission prompt through OnPermissionPrompt before
	// it appears (best effort, timing dependent).
	Capture(ctx context.Context, req CaptureRequest, promptAware bool) ([]LocalTrack, error)
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	IsDeviceListAvailable() bool
	IsDeviceChangeAvailable() bool
	IsDesktopSharingEnabled() bool
	// OnDeviceListChanged registers a hot-swap listener and returns its
	// remover.
	OnDeviceListChanged(func([]DeviceInfo)) (remove func())
	// OnPermissionPrompt registers the permission prompt listener; the
	// argument names the environment (browser) showing the prompt.
	OnPermissionPrompt(func(environment string)) (remove func())
}
