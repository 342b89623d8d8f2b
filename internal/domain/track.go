package domain

type TrackKind string

const (
	TrackAudio   TrackKind = "audio"
	TrackVideo   TrackKind = "video"
	TrackDesktop TrackKind = "desktop"
)

// MediaKind reports the media slot a track occupies: desktop capture
// competes with the camera for the single video slot.
func (k TrackKind) MediaKind() TrackKind {
	if k == TrackDesktop {
		return TrackVideo
	}
	return k
}

// TrackInfo is the read-only meta of a track as seen by the UI and the
// participant registry. The owning component holds the live handle.
type TrackInfo struct {
	ID    string
	Kind  TrackKind
	Muted bool
	Owner ParticipantID
}
