package player

import (
	"encoding/json"
	"fmt"

	"github.com/danmuck/playernet/internal/protocol/packet"
)

// FormHandler receives a form response. data is nil when the client closed
// the form.
type FormHandler func(p *Player, data any)

func (p *Player) allocFormID() uint32 {
	id := p.nextFormID
	p.nextFormID++
	return id
}

// SendForm shows form to the client and registers handler for its
// response. The returned id is valid until the response arrives.
func (p *Player) SendForm(form any, handler FormHandler) (uint32, error) {
	raw, err := json.Marshal(form)
	if err != nil {
		return 0, fmt.Errorf("player: encode form: %w", err)
	}
	p.mu.Lock()
	id := p.allocFormID()
	p.forms[id] = handler
	p.mu.Unlock()

	if !p.Send(&packet.ModalFormRequest{FormID: id, FormData: string(raw)}, false) {
		p.mu.Lock()
		delete(p.forms, id)
		p.mu.Unlock()
		return 0, fmt.Errorf("player: form %d not sent", id)
	}
	return id, nil
}

// OnFormSubmit routes a response to the handler registered for formID.
// Responses to the settings form are stored as the player's settings.
func (p *Player) OnFormSubmit(formID uint32, data any) bool {
	p.mu.Lock()
	if formID == p.settingsFormID {
		if data != nil {
			p.settings = data
		}
		p.mu.Unlock()
		return true
	}
	handler, ok := p.forms[formID]
	if ok {
		delete(p.forms, formID)
	}
	p.mu.Unlock()

	if !ok {
		p.logger.Debug().Uint32("form_id", formID).Msg("player.OnFormSubmit unknown form")
		return false
	}
	if handler != nil {
		handler(p, data)
	}
	return true
}

// ServerSettingsForm returns the configured settings form, or nil.
func (p *Player) ServerSettingsForm() *packet.ServerSettingsResponse {
	if p.cfg.SettingsForm == nil {
		return nil
	}
	raw, err := json.Marshal(p.cfg.SettingsForm)
	if err != nil {
		p.logger.Warn().Err(err).Msg("player.ServerSettingsForm encode failed")
		return nil
	}
	return &packet.ServerSettingsResponse{FormID: p.settingsFormID, FormData: string(raw)}
}

func (p *Player) SendServerSettings(form *packet.ServerSettingsResponse) {
	p.Send(form, false)
}

// Settings returns the last submitted settings form data.
func (p *Player) Settings() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}
