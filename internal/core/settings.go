package core

// Settings is the persisted local settings store: profile fields and the
// last selected device ids. Implemented by internal/config.
type Settings interface {
	DisplayName() string
	SetDisplayName(name string)
	Email() string
	SetEmail(email string)
	AvatarID() string
	AvatarURL() string

	CameraDeviceID() string
	// SetCameraDeviceID records the active camera; persist=false is used
	// when syncing real device ids back after enumeration.
	SetCameraDeviceID(id string, persist bool)
	MicDeviceID() string
	SetMicDeviceID(id string, persist bool)
	AudioOutputDeviceID() string
	SetAudioOutputDeviceID(id string) error
}
