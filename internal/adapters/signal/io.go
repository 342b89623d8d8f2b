package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (cl *Client) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (cl *Client) readPump(ctx context.Context, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("readPump read error")
				if ctx.Err() == nil {
					cl.connectionDropped(err)
				}
				return
			}
			cl.handleMessage(data)
		}
	}
}

// pingLoop keeps the connection warm; the server answers every ping
// with a pong, which readPump discards.
func (cl *Client) pingLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(cl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.sendJSON(c, map[string]string{"type": "ping"})
		}
	}
}

func (cl *Client) handleMessage(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	if env.Type == "pong" {
		return
	}

	conf := cl.currentConf()
	if conf == nil {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("message before conference init")
		return
	}

	switch env.Type {
	case "joined":
		conf.handleJoined(data)
	case "join_failed":
		conf.handleJoinFailed(data)
	case "conference_error":
		conf.handleConferenceError(data)
	case "member_joined":
		conf.handleMemberJoined(data)
	case "member_left":
		conf.handleMemberLeft(data)
	case "member_updated":
		conf.handleMemberUpdated(data)
	case "role":
		conf.handleRole(data)
	case "display_name":
		conf.handleDisplayName(data)
	case "property":
		conf.handleProperty(data)
	case "track_muted":
		conf.handleTrackMuted(data)
	case "dominant_speaker":
		conf.handleDominantSpeaker(data)
	case "interrupted":
		conf.handleInterrupted()
	case "restored":
		conf.handleRestored()
	case "chat":
		conf.handleChat(data)
	case "subject":
		conf.handleSubject(data)
	case "start_muted_policy":
		conf.handleStartMutedPolicy(data)
	case "started_muted":
		conf.handleStartedMuted(data)
	case "recording":
		conf.handleRecording(data)
	case "auth_status":
		conf.handleAuthStatus(data)
	case "kicked":
		conf.handleKicked()
	case "destroyed":
		conf.handleDestroyed(data)
	case "command":
		conf.handleCommand(data)
	case "answer":
		conf.handleAnswer(data)
	case "candidate":
		conf.handleCandidate(data)
	case "track_removed":
		conf.handleTrackRemoved(data)
	case "logout":
		conf.handleLogout(data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (cl *Client) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// send marshals v onto the current connection, quietly dropping when
// disconnected: session teardown races the last few outbound messages
// and losing them is fine.
func (cl *Client) send(v any) {
	c := cl.currentConn()
	if c == nil {
		log.Warn().Str("module", "signal").Msg("send without connection")
		return
	}
	cl.sendJSON(c, v)
}
