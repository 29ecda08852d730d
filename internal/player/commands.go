package player

import (
	"strings"

	"github.com/danmuck/playernet/internal/protocol/packet"
)

// runCommand executes a command line without its leading slash. Every
// command line is accepted; unknown commands get an error reply.
func (p *Player) runCommand(line string) bool {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	args = strings.TrimSpace(args)
	p.logger.Debug().Str("command", name).Msg("player.runCommand")

	switch strings.ToLower(name) {
	case "list":
		online := p.world.Online()
		names := make([]string, 0, len(online))
		for _, o := range online {
			names = append(names, o.Name())
		}
		p.SendMessage("Online: " + strings.Join(names, ", "))
	case "me":
		if args == "" {
			p.SendMessage("Usage: /me <action>")
			break
		}
		p.world.Broadcast(&packet.Text{Type: packet.TextTypeRaw, Message: "* " + p.Name() + " " + args}, "")
	case "tell", "msg":
		target, msg, _ := strings.Cut(args, " ")
		other, ok := p.world.ByName(target)
		if !ok || strings.TrimSpace(msg) == "" {
			p.SendMessage("Usage: /tell <player> <message>")
			break
		}
		other.Send(&packet.Text{Type: packet.TextTypeWhisper, Source: p.Name(), Message: strings.TrimSpace(msg)}, false)
	default:
		p.SendMessage("Unknown command: " + name)
	}
	return true
}
