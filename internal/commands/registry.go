package commands

import (
	"fmt"

	"storyai/internal/logging"
	"storyai/internal/terminal"
)

// handlerSet binds the catalog to one Env.
type handlerSet struct {
	env *Env
}

func (h *handlerSet) handlers() map[string]terminal.Handler {
	return map[string]terminal.Handler{
		"help":         h.help,
		"view story":   h.viewStory,
		"submit line":  h.submitLine,
		"view history": h.viewHistory,
		"suggest line": h.suggestLine,
		"rollback":     h.rollback,
		"status":       h.status,
		"balance":      h.balance,
		"stats":        h.stats,
		"connect":      h.connect,
		"logout":       h.logout,
		"clear":        h.clear,
		"theme":        h.theme,
		"export story": h.exportStory,
		"search":       h.search,
		"contributors": h.contributors,
		"version":      h.version,
		"about":        h.about,
		"time":         h.time,
	}
}

// NewRegistry builds the StoryAI command registry over env. Missing optional
// fields of env are filled with defaults.
func NewRegistry(env *Env) (*terminal.Registry, error) {
	if env == nil {
		return nil, fmt.Errorf("commands: nil env")
	}
	if err := env.validate(); err != nil {
		return nil, err
	}

	h := &handlerSet{env: env}
	handlers := h.handlers()

	cmds := make([]terminal.Command, 0, len(Catalog))
	for _, info := range Catalog {
		handler, ok := handlers[info.Name]
		if !ok {
			return nil, fmt.Errorf("commands: no handler for %q", info.Name)
		}
		cmds = append(cmds, terminal.Command{
			Name:        info.Name,
			Usage:       info.Usage,
			Description: info.Description,
			Group:       info.Group.String(),
			Handler:     handler,
		})
	}

	reg, err := terminal.NewRegistry(cmds...)
	if err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}
	logging.CommandsDebug("registry built with %d commands", len(cmds))
	return reg, nil
}
