package command

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/adamavenir/hark/internal/types"
	"github.com/dustin/go-humanize"
)

const maxDisplayLines = 20

var (
	noColor = os.Getenv("NO_COLOR") != ""

	dim    = ansiCode("\x1b[2m")
	bold   = ansiCode("\x1b[1m")
	reset  = ansiCode("\x1b[0m")
	yellow = ansiCode("\x1b[38;5;222m")
)

var authorColors = []string{
	ansiCode("\x1b[38;5;111m"),
	ansiCode("\x1b[38;5;157m"),
	ansiCode("\x1b[38;5;216m"),
	ansiCode("\x1b[38;5;36m"),
	ansiCode("\x1b[38;5;183m"),
	ansiCode("\x1b[38;5;230m"),
}

func ansiCode(code string) string {
	if noColor {
		return ""
	}
	return code
}

// FormatMention formats a mention for list output. guilds maps guild ids to
// names; unknown guilds print their id.
func FormatMention(msg types.Message, self types.Snowflake, guilds map[types.Snowflake]string) string {
	where := "DM"
	if msg.GuildID != nil {
		where = guilds[*msg.GuildID]
		if where == "" {
			where = msg.GuildID.String()
		}
	}
	edited := ""
	if msg.EditedAt != nil {
		edited = " (edited)"
	}
	kind := ""
	if self.Valid() || msg.MentionEveryone || len(msg.MentionRoles) > 0 {
		kind = fmt.Sprintf(" %s@%s%s", yellow, msg.Kind(self), reset)
	}

	header := fmt.Sprintf("%s%s%s %s[%s #%s · %s · %s%s]%s%s",
		authorColor(msg.Author.ID), bold+msg.Author.DisplayName, reset,
		dim, where, msg.ChannelID, humanize.Time(msg.Timestamp), msg.ID, edited, reset,
		kind)

	body := truncateLines(msg.Content, maxDisplayLines)
	if body == "" {
		return header
	}
	return header + "\n" + indent(body, "  ")
}

func authorColor(id types.Snowflake) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id.String()))
	return authorColors[int(h.Sum32()%uint32(len(authorColors)))]
}

func truncateLines(text string, limit int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= limit {
		return strings.Join(lines, "\n")
	}
	hidden := len(lines) - limit
	return strings.Join(lines[:limit], "\n") + fmt.Sprintf("\n%s... (%d more lines)%s", dim, hidden, reset)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
