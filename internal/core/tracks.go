package core

import (
	"context"

	"github.com/solivar/confab/internal/domain"
)

// LocalTrack is a live local capture unit owned by exactly one component
// at a time. Dispose returns ErrTrackDisposed on double dispose.
type LocalTrack interface {
	ID() string
	Kind() domain.TrackKind
	DeviceID() string
	IsMuted() bool
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	// Dispose releases the capture device. Attached tracks are removed
	// from the outgoing stream by the engine as part of disposal.
	Dispose(ctx context.Context) error
	// OnStalled registers the no-data-from-source watchdog.
	OnStalled(func())
	// OnStopped fires when the OS or browser ends the capture out-of-band,
	// e.g. the user stops a screen share from system UI.
	OnStopped(func())
}

// RemoteTrack is a read-only view of another participant's track.
type RemoteTrack interface {
	Info() domain.TrackInfo
}
