package session

import (
	"encoding/json"
	"fmt"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
)

type handlerFunc func(a *Adapter, env *protocol.Envelope) Outcome

type rule struct {
	policy Policy
	fn     handlerFunc
}

// handlers is indexed by kind and must cover every kind.
var handlers = [protocol.KindCount]rule{
	protocol.KindLogin:                      typed(Owner.HandleLogin),
	protocol.KindClientToServerHandshake:    fixed(FixedCancelled),
	protocol.KindDisconnect:                 fixed(AlwaysUnconsumed),
	protocol.KindResourcePackClientResponse: generic(Owner.HandleResourcePackClientResponse),
	protocol.KindText:                       typed(handleText),
	protocol.KindMoveEntityAbsolute:         generic(Owner.HandleMoveEntityAbsolute),
	protocol.KindMovePlayer:                 generic(Owner.HandleMovePlayer),
	protocol.KindLevelSoundEvent:            generic(Owner.HandleLevelSoundEvent),
	protocol.KindEntityEvent:                generic(Owner.HandleEntityEvent),
	protocol.KindInventoryTransaction:       generic(Owner.HandleInventoryTransaction),
	protocol.KindMobEquipment:               generic(Owner.HandleMobEquipment),
	protocol.KindMobArmorEquipment:          fixed(AlwaysConsumed),
	protocol.KindInteract:                   generic(Owner.HandleInteract),
	protocol.KindBlockPickRequest:           generic(Owner.HandleBlockPickRequest),
	protocol.KindEntityPickRequest:          fixed(AlwaysConsumed),
	protocol.KindPlayerAction:               generic(Owner.HandlePlayerAction),
	protocol.KindEntityFall:                 fixed(AlwaysConsumed),
	protocol.KindSetEntityMotion:            {policy: Relay, fn: relayToViewers},
	protocol.KindAnimate:                    generic(Owner.HandleAnimate),
	protocol.KindContainerClose:             generic(Owner.HandleContainerClose),
	protocol.KindPlayerHotbar:               fixed(AlwaysConsumed),
	protocol.KindCraftingEvent:              fixed(AlwaysConsumed),
	protocol.KindAdventureSettings:          generic(Owner.HandleAdventureSettings),
	protocol.KindBlockEntityData:            generic(Owner.HandleBlockEntityData),
	protocol.KindPlayerInput:                generic(Owner.HandlePlayerInput),
	protocol.KindSetPlayerGameType:          generic(Owner.HandleSetPlayerGameType),
	protocol.KindSpawnExperienceOrb:         fixed(AlwaysUnconsumed),
	protocol.KindMapInfoRequest:             fixed(AlwaysUnconsumed),
	protocol.KindRequestChunkRadius:         {policy: DirectMutation, fn: setViewDistance},
	protocol.KindChunkRadiusUpdated:         fixed(AlwaysUnconsumed),
	protocol.KindItemFrameDropItem:          generic(Owner.HandleItemFrameDropItem),
	protocol.KindBossEvent:                  fixed(AlwaysUnconsumed),
	protocol.KindShowCredits:                fixed(AlwaysUnconsumed),
	protocol.KindCommandRequest:             typed(Owner.HandleCommandRequest),
	protocol.KindCommandBlockUpdate:         fixed(AlwaysUnconsumed),
	protocol.KindResourcePackChunkRequest:   generic(Owner.HandleResourcePackChunkRequest),
	protocol.KindPlayerSkin:                 typed(handlePlayerSkin),
	protocol.KindBookEdit:                   generic(Owner.HandleBookEdit),
	protocol.KindModalFormRequest:           fixed(AlwaysUnconsumed),
	protocol.KindModalFormResponse:          typed(handleModalFormResponse),
	protocol.KindServerSettingsRequest:      {policy: DirectMutation, fn: sendServerSettings},
	protocol.KindServerSettingsResponse:     fixed(AlwaysUnconsumed),
}

func init() {
	if err := checkHandlers(handlers[:]); err != nil {
		panic(err)
	}
}

func checkHandlers(table []rule) error {
	for i, r := range table {
		kind := protocol.MessageKind(i)
		switch r.policy {
		case AlwaysConsumed, AlwaysUnconsumed, FixedCancelled:
		case Delegate, Relay, DirectMutation:
			if r.fn == nil {
				return fmt.Errorf("session: %s handler for %s has no function", r.policy, kind)
			}
		default:
			return fmt.Errorf("session: no handler for %s", kind)
		}
	}
	return nil
}

// PolicyOf returns the handler table policy for kind.
func PolicyOf(kind protocol.MessageKind) Policy {
	if !kind.Valid() {
		return policyUnset
	}
	return handlers[kind].policy
}

// Policies maps every message kind name to its policy name.
func Policies() map[string]string {
	out := make(map[string]string, protocol.KindCount)
	for _, k := range protocol.Kinds() {
		out[k.String()] = handlers[k].policy.String()
	}
	return out
}

func fixed(p Policy) rule {
	return rule{policy: p}
}

// typed delegates to fn when the decoded body has type T. A missing or
// foreign body is not accepted.
func typed[T packet.Body](fn func(Owner, T) bool) rule {
	return rule{policy: Delegate, fn: func(a *Adapter, env *protocol.Envelope) Outcome {
		body, ok := env.Body.(T)
		if !ok {
			return Unconsumed
		}
		return outcomeOf(fn(a.owner, body))
	}}
}

// generic delegates kinds without a dedicated body type. An undecoded
// envelope is passed as an empty body of its kind.
func generic(fn func(Owner, *packet.Generic) bool) rule {
	return rule{policy: Delegate, fn: func(a *Adapter, env *protocol.Envelope) Outcome {
		body, ok := env.Body.(*packet.Generic)
		if !ok {
			body = &packet.Generic{MessageKind: env.Kind}
		}
		return outcomeOf(fn(a.owner, body))
	}}
}

func handleText(o Owner, body *packet.Text) bool {
	if body.Type != packet.TextTypeChat {
		return false
	}
	return o.Chat(body.Message)
}

func handlePlayerSkin(o Owner, body *packet.PlayerSkin) bool {
	return o.ChangeSkin(body.Skin, body.NewSkinName, body.OldSkinName)
}

func handleModalFormResponse(o Owner, body *packet.ModalFormResponse) bool {
	return o.OnFormSubmit(body.FormID, decodeFormData(body.FormData))
}

// decodeFormData returns nil for malformed JSON; the owner treats that the
// same as a closed form.
func decodeFormData(raw string) any {
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data
}

func relayToViewers(a *Adapter, env *protocol.Envelope) Outcome {
	a.broadcaster.Broadcast(a.owner.Viewers(), env)
	return Consumed
}

func setViewDistance(a *Adapter, env *protocol.Envelope) Outcome {
	if body, ok := env.Body.(*packet.RequestChunkRadius); ok {
		a.owner.SetViewDistance(int(body.Radius))
	}
	return Consumed
}

func sendServerSettings(a *Adapter, _ *protocol.Envelope) Outcome {
	if form := a.owner.ServerSettingsForm(); form != nil {
		a.owner.SendServerSettings(form)
	}
	return Consumed
}
