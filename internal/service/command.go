package service

import "strings"

// CommandKind identifies a slash command. Commands are handled before the
// conversation engine ever sees the message.
type CommandKind string

const (
	CommandReset         CommandKind = "/reset"
	CommandDeleteAll     CommandKind = "/borrar"
	CommandDeleteProfile CommandKind = "/eliminar_usuario"
	CommandHelp          CommandKind = "/ayuda"
	CommandUnknown       CommandKind = ""
)

type Command struct {
	Kind CommandKind
	Raw  string
}

// ParseCommand reports whether text is a slash command. Unknown commands
// still parse (Kind == CommandUnknown) so the caller can answer with a
// pointer to /ayuda instead of feeding "/typo" into the conversation.
func ParseCommand(text string) (Command, bool) {
	stripped := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(stripped, "/") {
		return Command{}, false
	}

	raw := strings.Fields(stripped)[0]
	switch CommandKind(raw) {
	case CommandReset, CommandDeleteAll, CommandDeleteProfile, CommandHelp:
		return Command{Kind: CommandKind(raw), Raw: raw}, true
	default:
		return Command{Kind: CommandUnknown, Raw: raw}, true
	}
}

const helpText = `Comandos disponibles:
  /reset — Reiniciar la conversación actual
  /borrar — Eliminar tu perfil y reiniciar el chat
  /eliminar_usuario — Eliminar solo tu perfil de la BD
  /ayuda — Mostrar esta lista de comandos`
