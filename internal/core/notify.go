package core

import (
	"time"

	"github.com/solivar/confab/internal/domain"
)

// APINotifier is the one-way external event stream for embedding apps.
// Fire-and-forget; a slow or broken consumer must not stall the session.
type APINotifier interface {
	NotifyConferenceJoined(room domain.RoomName)
	NotifyConferenceLeft(room domain.RoomName)
	NotifyUserJoined(id domain.ParticipantID)
	NotifyUserLeft(id domain.ParticipantID)
	NotifySendingChatMessage(text string)
	NotifyReceivedChatMessage(id domain.ParticipantID, displayName, text string, ts time.Time)
	NotifyDisplayNameChanged(id domain.ParticipantID, name string)
	NotifyReadyToClose()
}
