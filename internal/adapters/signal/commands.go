package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/domain"
)

// commandWire is the presence command envelope. Attribute values travel
// as plain strings; types are the consumer's business.
type commandWire struct {
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Value      string            `json:"value,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Persistent bool              `json:"persistent,omitempty"`
	From       string            `json:"from,omitempty"`
}

func (cf *conference) AddCommandListener(name string, h command.Handler) {
	cf.cmdMu.Lock()
	cf.cmdHandlers[name] = append(cf.cmdHandlers[name], h)
	cf.cmdMu.Unlock()
}

// RemoveCommand retracts the locally persisted command; the server drops
// it from presence so new joiners stop receiving it.
func (cf *conference) RemoveCommand(name string) {
	cf.cmdMu.Lock()
	delete(cf.persisted, name)
	cf.cmdMu.Unlock()
	cf.client.send(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"command_remove", name})
}

// SendCommand persists and broadcasts: the server replays it to every
// later joiner, and we re-send it ourselves after a rejoin.
func (cf *conference) SendCommand(name string, p command.Payload) {
	cf.cmdMu.Lock()
	cf.persisted[name] = p
	cf.cmdMu.Unlock()
	cf.sendCommand(name, p, true)
}

func (cf *conference) SendCommandOnce(name string, p command.Payload) {
	cf.sendCommand(name, p, false)
}

func (cf *conference) sendCommand(name string, p command.Payload, persistent bool) {
	attrs := make(map[string]string, len(p.Attributes))
	for k, v := range p.Attributes {
		attrs[k] = v.Wire()
	}
	cf.client.send(commandWire{
		Type:       "command",
		Name:       name,
		Value:      p.Value,
		Attributes: attrs,
		Persistent: persistent,
	})
	// The server echoes commands back to the sender; consumers that must
	// ignore their own commands filter on the sender id. Deliver locally
	// too so behavior does not depend on transport echo timing.
	cf.dispatchCommand(name, p, cf.MyID())
}

// resendPersistedCommands pushes our persisted presence state again
// after a (re)join.
func (cf *conference) resendPersistedCommands() {
	cf.cmdMu.Lock()
	snap := make(map[string]command.Payload, len(cf.persisted))
	for k, v := range cf.persisted {
		snap[k] = v
	}
	cf.cmdMu.Unlock()
	for name, p := range snap {
		cf.sendCommand(name, p, true)
	}
}

func (cf *conference) handleCommand(data []byte) {
	var w commandWire
	if err := json.Unmarshal(data, &w); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad command payload")
		return
	}
	from := domain.ParticipantID(w.From)
	if from == cf.MyID() {
		// already delivered locally on send
		return
	}
	p := command.Payload{Value: w.Value, Attributes: make(map[string]command.Attr, len(w.Attributes))}
	for k, v := range w.Attributes {
		p.Attributes[k] = command.FromWire(v)
	}
	cf.dispatchCommand(w.Name, p, from)
}

func (cf *conference) dispatchCommand(name string, p command.Payload, from domain.ParticipantID) {
	cf.cmdMu.Lock()
	handlers := append([]command.Handler(nil), cf.cmdHandlers[name]...)
	cf.cmdMu.Unlock()
	for _, h := range handlers {
		h(p, from)
	}
}
