// Package commands binds the StoryAI command set to its collaborators and
// builds the registry a terminal session dispatches against.
package commands

// Group is a help-listing section.
type Group int

const (
	GroupStory Group = iota
	GroupSystem
	GroupUser
	GroupAdvanced
)

// String returns the group name.
func (g Group) String() string {
	names := []string{"Story", "System", "User", "Advanced"}
	if int(g) < len(names) {
		return names[g]
	}
	return "Unknown"
}

func (g Group) icon() string {
	switch g {
	case GroupStory:
		return "📖"
	case GroupSystem:
		return "🔧"
	case GroupUser:
		return "👤"
	default:
		return "⚙️"
	}
}

// Info holds metadata about a command.
type Info struct {
	Name        string // Command name, one or two words (e.g. "view story")
	Usage       string // Usage line shown in listings
	Description string // Short description
	Details     string // Markdown paragraph for "help <command>"
	Examples    []string
	Group       Group
}

// Catalog lists every command in declaration order. Order matters: it is
// the order used for verb fallback and Tab completion.
var Catalog = []Info{
	{
		Name:        "help",
		Usage:       "help [command]",
		Description: "Show available commands",
		Details:     "Without an argument, lists every command by group. With a command name, shows its usage and examples.",
		Examples:    []string{"help", "help submit line"},
		Group:       GroupSystem,
	},
	{
		Name:        "view story",
		Usage:       "view story",
		Description: "Display the current story",
		Details:     "Prints every line of the shared story, numbered from 1.",
		Group:       GroupStory,
	},
	{
		Name:        "submit line",
		Usage:       "submit line <text>",
		Description: "Submit a new line to the story",
		Details: "Appends one line to the story. Requires a connected wallet holding at least the " +
			"minimum token balance, and each wallet may contribute once per cooldown period.",
		Examples: []string{"submit line The lights flickered as the AI woke."},
		Group:    GroupStory,
	},
	{
		Name:        "view history",
		Usage:       "view history",
		Description: "View story version history",
		Details:     "Lists the most recent story versions, newest first. Every accepted line and every rollback creates a version.",
		Group:       GroupStory,
	},
	{
		Name:        "suggest line",
		Usage:       "suggest line",
		Description: "Ask the AI for a next line",
		Details:     "Generates a suggestion that continues the current story. Nothing is submitted until you run `submit line`.",
		Group:       GroupStory,
	},
	{
		Name:        "rollback",
		Usage:       "rollback <version>",
		Description: "Restore an earlier story version",
		Details:     "Restores the lines of a version listed by `view history`. A unique prefix of the version ID is enough.",
		Examples:    []string{"rollback 3f2a9c1e"},
		Group:       GroupStory,
	},
	{
		Name:        "status",
		Usage:       "status",
		Description: "Display system status",
		Details:     "Shows the wallet connection, token balance, network and story length.",
		Group:       GroupSystem,
	},
	{
		Name:        "balance",
		Usage:       "balance",
		Description: "Check your token balance",
		Details:     "Shows the token balance of the connected wallet.",
		Group:       GroupUser,
	},
	{
		Name:        "stats",
		Usage:       "stats",
		Description: "View your contribution statistics",
		Details:     "Shows how many lines the connected wallet has contributed, when it last contributed, and its achievements.",
		Group:       GroupUser,
	},
	{
		Name:        "connect",
		Usage:       "connect <address>",
		Description: "Connect your wallet",
		Details:     "Connects a Solana wallet by its base58 public key.",
		Examples:    []string{"connect 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"},
		Group:       GroupUser,
	},
	{
		Name:        "logout",
		Usage:       "logout",
		Description: "Disconnect your wallet",
		Details:     "Disconnects the wallet and ends the authenticated session.",
		Group:       GroupUser,
	},
	{
		Name:        "clear",
		Usage:       "clear",
		Description: "Clear terminal",
		Details:     "Removes every line from the terminal. Command history is kept.",
		Group:       GroupSystem,
	},
	{
		Name:        "theme",
		Usage:       "theme <light|dark>",
		Description: "Change terminal theme",
		Details:     "Switches between the dark and light palettes.",
		Examples:    []string{"theme light", "theme dark"},
		Group:       GroupSystem,
	},
	{
		Name:        "export story",
		Usage:       "export story [file]",
		Description: "Export story to text file",
		Details:     "Writes the story, one line per row, to a text file in the export directory. Defaults to `story.txt`.",
		Examples:    []string{"export story", "export story chapter-one.txt"},
		Group:       GroupAdvanced,
	},
	{
		Name:        "search",
		Usage:       "search <term>",
		Description: "Search within the story",
		Details:     "Case-insensitive search over the story lines.",
		Examples:    []string{"search dragon"},
		Group:       GroupAdvanced,
	},
	{
		Name:        "contributors",
		Usage:       "contributors",
		Description: "List top contributors",
		Details:     "Ranks wallets by the number of lines they contributed.",
		Group:       GroupAdvanced,
	},
	{
		Name:        "version",
		Usage:       "version",
		Description: "Show system version",
		Group:       GroupAdvanced,
	},
	{
		Name:        "about",
		Usage:       "about",
		Description: "About StoryAI",
		Group:       GroupAdvanced,
	},
	{
		Name:        "time",
		Usage:       "time",
		Description: "Show the current system time",
		Group:       GroupAdvanced,
	},
}

// FindInfo returns the catalog entry for name.
func FindInfo(name string) (Info, bool) {
	for _, info := range Catalog {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}

// ByGroup returns the catalog entries of g in declaration order.
func ByGroup(g Group) []Info {
	var out []Info
	for _, info := range Catalog {
		if info.Group == g {
			out = append(out, info)
		}
	}
	return out
}
