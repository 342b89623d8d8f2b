package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/adapters/rtc"
	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

var ErrNotJoined = errors.New("not joined")

// chat flood self-limit; the server enforces its own.
const (
	chatRateLimit    = 10
	chatRateInterval = 10 * time.Second
)

// conference is the room handle bound to one Client connection. It owns
// the participant registry, the command persistence and the media
// negotiation for this room.
type conference struct {
	client *Client
	room   domain.RoomName

	mu           sync.RWMutex
	joined       bool
	myID         domain.ParticipantID
	moderator    bool
	participants map[domain.ParticipantID]*domain.Participant
	observers    map[int]core.ConferenceObserver
	nextObsID    int

	media        *rtc.Connection
	senders      map[string]func() error
	remoteTracks map[string]core.RemoteTrack

	cmdMu       sync.Mutex
	cmdHandlers map[string][]command.Handler
	persisted   map[string]command.Payload

	chatLimiter *RateLimiter

	logoutMu sync.Mutex
	logoutCh chan string
}

func newConference(client *Client, room domain.RoomName) *conference {
	return &conference{
		client:       client,
		room:         room,
		participants: make(map[domain.ParticipantID]*domain.Participant),
		observers:    make(map[int]core.ConferenceObserver),
		senders:      make(map[string]func() error),
		remoteTracks: make(map[string]core.RemoteTrack),
		cmdHandlers:  make(map[string][]command.Handler),
		persisted:    make(map[string]command.Payload),
		chatLimiter:  NewRateLimiter(chatRateLimit, chatRateInterval),
	}
}

// Join asks the server to enter the room. The outcome arrives as a
// joined or join_failed event; the returned error covers only the local
// send path.
func (cf *conference) Join(ctx context.Context, password string) error {
	c := cf.client.currentConn()
	if c == nil {
		return errors.New("join without connection")
	}
	log.Info().Str("module", "signal").Str("room", string(cf.room)).Msg("join")
	cf.client.sendJSON(c, struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		Password string `json:"password,omitempty"`
	}{"join", string(cf.room), password})
	return nil
}

func (cf *conference) Leave(ctx context.Context) error {
	cf.mu.Lock()
	wasJoined := cf.joined
	cf.joined = false
	media := cf.media
	cf.media = nil
	cf.mu.Unlock()

	if media != nil {
		media.Close()
	}
	if !wasJoined {
		return nil
	}
	log.Info().Str("module", "signal").Str("room", string(cf.room)).Msg("leave")
	cf.client.send(map[string]string{"type": "leave"})
	return nil
}

func (cf *conference) IsJoined() bool {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	return cf.joined
}

func (cf *conference) MyID() domain.ParticipantID {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	return cf.myID
}

func (cf *conference) IsModerator() bool {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	return cf.moderator
}

func (cf *conference) ParticipantByID(id domain.ParticipantID) (*domain.Participant, bool) {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	p, ok := cf.participants[id]
	return p, ok
}

func (cf *conference) Participants() []*domain.Participant {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	out := make([]*domain.Participant, 0, len(cf.participants))
	for _, p := range cf.participants {
		out = append(out, p)
	}
	return out
}

func (cf *conference) ParticipantCount() int {
	cf.mu.RLock()
	defer cf.mu.RUnlock()
	return len(cf.participants)
}

func (cf *conference) SetDisplayName(name string) {
	cf.client.send(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"display_name", name})
}

func (cf *conference) SetSubject(subject string) {
	cf.client.send(struct {
		Type    string `json:"type"`
		Subject string `json:"subject"`
	}{"subject", subject})
}

func (cf *conference) SetStartMutedPolicy(audio, video bool) {
	cf.client.send(struct {
		Type  string `json:"type"`
		Audio bool   `json:"audio"`
		Video bool   `json:"video"`
	}{"start_muted_policy", audio, video})
}

func (cf *conference) SetLocalParticipantProperty(name, value string) {
	cf.client.send(struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}{"property", name, value})
}

func (cf *conference) KickParticipant(id domain.ParticipantID) {
	cf.client.send(struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}{"kick", string(id)})
}

func (cf *conference) MuteParticipant(id domain.ParticipantID) {
	cf.client.send(struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}{"mute", string(id)})
}

func (cf *conference) SelectParticipant(id domain.ParticipantID) error {
	if !cf.IsJoined() {
		return ErrNotJoined
	}
	cf.client.send(struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}{"select", string(id)})
	return nil
}

func (cf *conference) PinParticipant(id *domain.ParticipantID) error {
	if !cf.IsJoined() {
		return ErrNotJoined
	}
	pinned := ""
	if id != nil {
		pinned = string(*id)
	}
	cf.client.send(struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
	}{"pin", pinned})
	return nil
}

func (cf *conference) Dial(sipNumber string) error {
	if !cf.IsJoined() {
		return ErrNotJoined
	}
	cf.client.send(struct {
		Type   string `json:"type"`
		Number string `json:"number"`
	}{"dial", sipNumber})
	return nil
}

func (cf *conference) ToggleRecording(options map[string]string) {
	cf.client.send(struct {
		Type    string            `json:"type"`
		Options map[string]string `json:"options,omitempty"`
	}{"recording", options})
}

func (cf *conference) SendTextMessage(text string) {
	if !cf.chatLimiter.Allow("chat") {
		log.Warn().Str("module", "signal").Msg("chat rate limited")
		cf.notify(func(o core.ConferenceObserver) {
			o.ConferenceErrored(core.NewConferenceError(core.ErrChatError, "rate limited"))
		})
		return
	}
	cf.client.send(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{"chat", text})
}

func (cf *conference) SendApplicationLog(payload string) {
	cf.client.send(struct {
		Type    string `json:"type"`
		Payload string `json:"payload"`
	}{"app_log", payload})
}

func (cf *conference) Authenticate(ctx context.Context) error {
	if cf.client.currentConn() == nil {
		return errors.New("authenticate without connection")
	}
	cf.client.send(map[string]string{"type": "authenticate"})
	return nil
}

// Logout asks the server to de-authenticate and waits for the redirect
// URL it answers with.
func (cf *conference) Logout(ctx context.Context) (string, error) {
	cf.logoutMu.Lock()
	if cf.logoutCh != nil {
		cf.logoutMu.Unlock()
		return "", errors.New("logout already in progress")
	}
	ch := make(chan string, 1)
	cf.logoutCh = ch
	cf.logoutMu.Unlock()

	defer func() {
		cf.logoutMu.Lock()
		cf.logoutCh = nil
		cf.logoutMu.Unlock()
	}()

	cf.client.send(map[string]string{"type": "logout"})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case url := <-ch:
		return url, nil
	}
}

func (cf *conference) AddObserver(o core.ConferenceObserver) func() {
	cf.mu.Lock()
	id := cf.nextObsID
	cf.nextObsID++
	cf.observers[id] = o
	cf.mu.Unlock()
	return func() {
		cf.mu.Lock()
		delete(cf.observers, id)
		cf.mu.Unlock()
	}
}

// notify fans an event out to a snapshot of the observers, outside the
// registry lock.
func (cf *conference) notify(fn func(core.ConferenceObserver)) {
	cf.mu.RLock()
	obs := make([]core.ConferenceObserver, 0, len(cf.observers))
	for _, o := range cf.observers {
		obs = append(obs, o)
	}
	cf.mu.RUnlock()
	for _, o := range obs {
		fn(o)
	}
}
