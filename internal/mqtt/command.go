package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind selects the actuator a command is for.
type CommandKind int

const (
	CommandWindow CommandKind = iota + 1
	CommandDoor
	CommandPing
)

func (k CommandKind) String() string {
	switch k {
	case CommandWindow:
		return NameWindow
	case CommandDoor:
		return NameDoor
	case CommandPing:
		return NamePing
	}
	return "unknown"
}

// Command is a decoded inbound request.
type Command struct {
	Kind  CommandKind
	Force bool

	// Window: target position, or FullyOpen when the payload was "open".
	Position  int
	FullyOpen bool

	// Door: true for "on". "off" decodes with On false.
	On bool
}

// ParseCommand decodes a message received on one of t.CommandFilters().
func ParseCommand(t Topics, topic string, payload []byte) (Command, error) {
	rest, ok := strings.CutPrefix(topic, t.Base+"/")
	if !ok {
		return Command{}, fmt.Errorf("topic %q is outside base %q", topic, t.Base)
	}
	name, suffix, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(suffix, "/") {
		return Command{}, fmt.Errorf("topic %q is not a command topic", topic)
	}

	var cmd Command
	switch suffix {
	case SuffixSet:
	case SuffixForce:
		cmd.Force = true
	default:
		return Command{}, fmt.Errorf("topic %q: unknown command suffix %q", topic, suffix)
	}

	value := strings.ToLower(strings.TrimSpace(string(payload)))

	switch name {
	case NameWindow:
		cmd.Kind = CommandWindow
		switch value {
		case PayloadClose:
			cmd.Position = 0
		case PayloadOpen:
			cmd.FullyOpen = true
		default:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Command{}, fmt.Errorf("window payload %q: want a position, %q or %q", value, PayloadOpen, PayloadClose)
			}
			cmd.Position = n
		}

	case NameDoor:
		cmd.Kind = CommandDoor
		switch value {
		case PayloadOn:
			cmd.On = true
		case PayloadOff:
		default:
			return Command{}, fmt.Errorf("door payload %q: want %q or %q", value, PayloadOn, PayloadOff)
		}

	case NamePing:
		cmd.Kind = CommandPing

	default:
		return Command{}, fmt.Errorf("topic %q: unknown actuator %q", topic, name)
	}

	return cmd, nil
}
