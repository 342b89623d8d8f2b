package media

import (
	"github.com/solivar/confab/internal/core"
)

// DevicesByKind filters a device enumeration down to one logical kind.
func DevicesByKind(devices []core.DeviceInfo, kind core.DeviceKind) []core.DeviceInfo {
	out := make([]core.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func containsDevice(devices []core.DeviceInfo, id string) bool {
	for _, d := range devices {
		if d.DeviceID == id {
			return true
		}
	}
	return false
}

// NewDevices names the device ids to switch to after a device list
// change; a nil field means the kind keeps its current device.
type NewDevices struct {
	AudioInput  *string
	VideoInput  *string
	AudioOutput *string
}

// DiffAfterChange compares the previous and the new enumeration and
// decides which logical devices need substitution: a kind whose active
// device vanished moves to the new default, and a kind that had no
// device at all picks one up as soon as any appears. Video input is left
// alone while a screen share occupies the video slot.
func DiffAfterChange(
	old, updated []core.DeviceInfo,
	sharingScreen bool,
	currentAudioID, currentVideoID string,
	selectedOutputID string,
) NewDevices {
	var nd NewDevices

	newAudio := DevicesByKind(updated, core.DeviceAudioInput)
	if id, ok := pickSubstitute(newAudio, currentAudioID); ok {
		nd.AudioInput = &id
	}

	if !sharingScreen {
		newVideo := DevicesByKind(updated, core.DeviceVideoInput)
		if id, ok := pickSubstitute(newVideo, currentVideoID); ok {
			nd.VideoInput = &id
		}
	}

	newOut := DevicesByKind(updated, core.DeviceAudioOutput)
	if selectedOutputID != "" && !containsDevice(newOut, selectedOutputID) && len(newOut) > 0 {
		id := newOut[0].DeviceID
		nd.AudioOutput = &id
	}

	return nd
}

// pickSubstitute returns the default device id when the current device is
// gone (or was never there) and the kind still has devices to offer.
func pickSubstitute(available []core.DeviceInfo, currentID string) (string, bool) {
	if len(available) == 0 {
		return "", false
	}
	if currentID != "" && containsDevice(available, currentID) {
		return "", false
	}
	return available[0].DeviceID, true
}

// VanishedCount reports how many devices of kind disappeared between two
// enumerations. A positive count for an input kind means the replacement
// track must come up muted if a substitution happened on an unmuted
// device (the user did not choose the swap).
func VanishedCount(old, updated []core.DeviceInfo, kind core.DeviceKind) int {
	n := len(DevicesByKind(old, kind)) - len(DevicesByKind(updated, kind))
	if n < 0 {
		return 0
	}
	return n
}
