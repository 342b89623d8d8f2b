package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solivar/confab/internal/domain"
)

func (ctrl *Controller) handleState(c *gin.Context) {
	s := ctrl.Session
	c.JSON(http.StatusOK, gin.H{
		"room":           string(s.Room()),
		"id":             string(s.MyID()),
		"moderator":      s.IsModerator(),
		"audio_muted":    s.IsLocalAudioMuted(),
		"video_muted":    s.IsLocalVideoMuted(),
		"sharing_screen": s.IsSharingScreen(),
	})
}

func (ctrl *Controller) handleChat(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid text"})
		return
	}
	ctrl.Session.SendChatMessage(req.Text)
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (ctrl *Controller) handleDisplayName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	ctrl.Session.ChangeLocalDisplayName(req.Name)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid email"})
		return
	}
	ctrl.Session.ChangeLocalEmail(req.Email)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleSubject(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid subject"})
		return
	}
	ctrl.Session.SetSubject(req.Subject)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleAudioMute(c *gin.Context) {
	var req struct {
		Muted bool `json:"muted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.MuteAudio(c.Request.Context(), req.Muted)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleVideoMute(c *gin.Context) {
	var req struct {
		Muted bool `json:"muted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.MuteVideo(c.Request.Context(), req.Muted)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleScreenShare(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.ToggleScreenSharing(c.Request.Context(), req.Enabled)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleRaiseHand(c *gin.Context) {
	var req struct {
		Raised bool `json:"raised"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.SetRaisedHand(req.Raised)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleKick(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid id"})
		return
	}
	ctrl.Session.KickParticipant(domain.ParticipantID(req.ID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleRemoteMute(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid id"})
		return
	}
	ctrl.Session.MuteParticipant(domain.ParticipantID(req.ID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePin pins a participant; an empty id unpins.
func (ctrl *Controller) handlePin(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	var id *domain.ParticipantID
	if req.ID != "" {
		pid := domain.ParticipantID(req.ID)
		id = &pid
	}
	ctrl.Session.PinEndpoint(id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleRecording(c *gin.Context) {
	var req struct {
		Options map[string]string `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.ToggleRecording(req.Options)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleDial(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid number"})
		return
	}
	ctrl.Session.Dial(req.Number)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleSharedVideo(c *gin.Context) {
	var req struct {
		URL      string  `json:"url"`
		State    string  `json:"state" binding:"required"`
		Position float64 `json:"position"`
		Muted    bool    `json:"muted"`
		Volume   float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid state"})
		return
	}
	ctrl.Session.UpdateSharedVideo(req.URL, req.State, req.Position, req.Muted, req.Volume)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleFollowMe(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	if req.Enabled {
		ctrl.Follow.Enable()
	} else {
		ctrl.Follow.Disable()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *Controller) handleHangup(c *gin.Context) {
	var req struct {
		RequestFeedback bool `json:"request_feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctrl.Session.Hangup(c.Request.Context(), req.RequestFeedback)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
