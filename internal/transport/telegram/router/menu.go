package router

import (
	"sort"
	"strings"
	"unicode"

	kit "pricebot/internal/transport"
)

// Telegram bot command names must match [a-z0-9_]{1,32} and clients
// expect them to start with a letter.
const maxMenuCommandLen = 32

// sanitizeTelegramCommand maps an arbitrary route or alias onto that
// restricted alphabet. Separators collapse into single underscores;
// anything else (CJK aliases like "油价") is dropped, which may leave
// nothing to register.
func sanitizeTelegramCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	prevSep := true
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevSep = false
		case r == '_' || r == '-' || r == '/' || unicode.IsSpace(r):
			if !prevSep && b.Len() > 0 {
				b.WriteByte('_')
				prevSep = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > maxMenuCommandLen {
		out = strings.TrimRight(out[:maxMenuCommandLen], "_")
	}
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
		if len(out) > maxMenuCommandLen {
			out = strings.TrimRight(out[:maxMenuCommandLen], "_")
		}
	}
	return out
}

// telegramCommandNameFromRoute builds a menu-safe command for a route.
// Examples:
//
//	["fuel","calc"]  -> "fuel_calc"
//	["egg-history"]  -> "egg_history"
func telegramCommandNameFromRoute(route []string) (string, bool) {
	if len(route) == 0 {
		return "", false
	}
	out := sanitizeTelegramCommand(strings.Join(route, "_"))
	return out, out != ""
}

type menuEntry struct {
	cmd  string
	desc string
	prio int // lower wins on name collisions
}

// buildTelegramMenuCommands assembles the platform-side command menu:
// top-level commands and groups first (these drive autocomplete), then
// flattened multi-token leaves as /a_b shortcuts.
func buildTelegramMenuCommands(root *routeNode, leafCmds []Command) []kit.BotCommand {
	byCmd := map[string]menuEntry{}
	put := func(cmd, desc string, prio int) {
		cmd = sanitizeTelegramCommand(cmd)
		if cmd == "" {
			return
		}
		desc = strings.ReplaceAll(strings.TrimSpace(desc), "\n", " ")
		if desc == "" {
			desc = cmd
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}
		if cur, ok := byCmd[cmd]; ok {
			if prio > cur.prio || (prio == cur.prio && len(desc) >= len(cur.desc)) {
				return
			}
		}
		byCmd[cmd] = menuEntry{cmd: cmd, desc: desc, prio: prio}
	}

	if root != nil {
		for _, name := range root.subNames() {
			n, _ := root.sub(name)
			if n == nil {
				continue
			}
			desc := summarizeNodeDesc(n)
			if nodeIsOwnerOnly(n) {
				desc = "🔒 " + desc
			}
			put(name, desc, 0)
		}
	}

	for _, c := range leafCmds {
		route := routeTokens(c.Route)
		if len(route) < 2 {
			// single-token routes are already in the top-level list
			continue
		}
		menu, ok := telegramCommandNameFromRoute(route)
		if !ok {
			continue
		}
		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			desc = strings.Join(route, " ")
		}
		if c.Access == AccessOwnerOnly {
			desc = "🔒 " + desc
		}
		put(menu, desc, 1)
	}

	entries := make([]menuEntry, 0, len(byCmd))
	for _, e := range byCmd {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].prio != entries[j].prio {
			return entries[i].prio < entries[j].prio
		}
		return entries[i].cmd < entries[j].cmd
	})

	// Telegram caps the menu at 100 commands.
	out := make([]kit.BotCommand, 0, len(entries))
	for _, e := range entries {
		out = append(out, kit.BotCommand{Command: e.cmd, Description: e.desc})
		if len(out) == 100 {
			break
		}
	}
	return out
}
