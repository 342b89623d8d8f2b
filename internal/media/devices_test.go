package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/core"
)

func dev(id string, kind core.DeviceKind) core.DeviceInfo {
	return core.DeviceInfo{DeviceID: id, Kind: kind, Label: id}
}

func TestDiffAfterChangeSubstitutesVanishedDevices(t *testing.T) {
	old := []core.DeviceInfo{dev("mic-1", core.DeviceAudioInput), dev("cam-1", core.DeviceVideoInput)}
	updated := []core.DeviceInfo{dev("mic-2", core.DeviceAudioInput), dev("cam-1", core.DeviceVideoInput)}

	nd := DiffAfterChange(old, updated, false, "mic-1", "cam-1", "")

	require.NotNil(t, nd.AudioInput)
	assert.Equal(t, "mic-2", *nd.AudioInput)
	assert.Nil(t, nd.VideoInput)
	assert.Nil(t, nd.AudioOutput)
}

func TestDiffAfterChangeKeepsSurvivingDevice(t *testing.T) {
	devices := []core.DeviceInfo{dev("mic-1", core.DeviceAudioInput), dev("mic-2", core.DeviceAudioInput)}

	nd := DiffAfterChange(devices, devices, false, "mic-1", "", "")

	assert.Nil(t, nd.AudioInput)
}

func TestDiffAfterChangePicksUpFirstDeviceOfMissingKind(t *testing.T) {
	var old []core.DeviceInfo
	updated := []core.DeviceInfo{dev("cam-1", core.DeviceVideoInput)}

	nd := DiffAfterChange(old, updated, false, "", "", "")

	require.NotNil(t, nd.VideoInput)
	assert.Equal(t, "cam-1", *nd.VideoInput)
}

func TestDiffAfterChangeLeavesVideoAloneDuringScreenShare(t *testing.T) {
	old := []core.DeviceInfo{dev("cam-1", core.DeviceVideoInput)}
	updated := []core.DeviceInfo{dev("cam-2", core.DeviceVideoInput)}

	nd := DiffAfterChange(old, updated, true, "", "cam-1", "")

	assert.Nil(t, nd.VideoInput)
}

func TestDiffAfterChangeReplacesVanishedOutput(t *testing.T) {
	old := []core.DeviceInfo{dev("spk-1", core.DeviceAudioOutput)}
	updated := []core.DeviceInfo{dev("spk-2", core.DeviceAudioOutput)}

	nd := DiffAfterChange(old, updated, false, "", "", "spk-1")

	require.NotNil(t, nd.AudioOutput)
	assert.Equal(t, "spk-2", *nd.AudioOutput)
}

func TestVanishedCount(t *testing.T) {
	old := []core.DeviceInfo{dev("a", core.DeviceAudioInput), dev("b", core.DeviceAudioInput)}
	updated := []core.DeviceInfo{dev("a", core.DeviceAudioInput)}

	assert.Equal(t, 1, VanishedCount(old, updated, core.DeviceAudioInput))
	assert.Zero(t, VanishedCount(updated, old, core.DeviceAudioInput))
	assert.Zero(t, VanishedCount(old, updated, core.DeviceVideoInput))
}
