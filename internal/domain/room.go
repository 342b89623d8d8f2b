package domain

type (
	RoomName string
	RoomID   string
)

// Room is the conference room meta. Subject is mutable and mirrored
// from the signaling layer's subject-changed notifications.
type Room struct {
	ID      RoomID
	Name    RoomName
	Subject string
}
