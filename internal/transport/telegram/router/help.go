package router

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// helpText renders Telegram-friendly help in HTML parse mode.
// It is safe to pass directly to Telegram with ParseMode="HTML".
func (m *CommandManager) helpText(path []string) string {
	m.mu.RLock()
	root := m.root
	alias := m.alias
	m.mu.RUnlock()

	// Walk to requested node.
	cur := root
	full := make([]string, 0, len(path))
	for _, p := range path {
		n, ok := cur.sub(p)
		if !ok {
			// maybe it's an alias
			if leaf, ok2 := alias[p]; ok2 && leaf != nil && leaf.cmd != nil {
				cur = leaf
				full = routeTokens(leaf.cmd.Route)
				break
			}
			return m.helpUnknownHTML()
		}
		cur = n
		full = append(full, p)
	}

	if len(path) == 0 {
		return m.helpTopHTML(root)
	}
	return m.helpNodeHTML(cur, full)
}

func (m *CommandManager) helpUnknownHTML() string {
	return strings.Join([]string{
		"❓ <b>未知命令</b>",
		"输入 <code>/help</code> 查看命令列表。",
	}, "\n")
}

func (m *CommandManager) helpTopHTML(root *routeNode) string {
	// Build a stable list of top-level entries.
	names := root.subNames()
	rows := make([]topRow, 0, len(names))
	for _, name := range names {
		n, _ := root.sub(name)
		if n == nil {
			continue
		}
		desc := summarizeNodeDesc(n)
		lock := nodeIsOwnerOnly(n)
		rows = append(rows, topRow{name: name, desc: desc, lock: lock})
	}
	// Group: owner-only at the bottom, but keep alphabetical within groups.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].lock != rows[j].lock {
			return !rows[i].lock && rows[j].lock
		}
		return rows[i].name < rows[j].name
	})

	lines := []string{
		"📚 <b>命令列表</b>",
		"输入 <code>/help &lt;cmd&gt;</code> 查看详情。",
		"",
	}

	for _, r := range rows {
		cmd := "/" + html.EscapeString(r.name)
		suffix := ""
		if r.desc != "" {
			suffix = " — " + html.EscapeString(r.desc)
		}
		prefix := "• "
		if r.lock {
			prefix = "• 🔒 "
		}
		lines = append(lines, prefix+"<code>"+cmd+"</code>"+suffix)
	}

	lines = append(lines,
		"",
		"提示：命令也可以直接输入中文关键词，例如 <code>金币比例</code>、<code>油价 广东</code>、<code>蛋价</code>。",
	)
	return strings.Join(filterEmpty(lines), "\n")
}

type topRow struct {
	name string
	desc string
	lock bool
}

func (m *CommandManager) helpNodeHTML(cur *routeNode, full []string) string {
	// Title.
	title := "/" + strings.Join(full, " ")
	lines := []string{fmt.Sprintf("📚 <b>帮助</b> <code>%s</code>", html.EscapeString(title))}

	// Command details (if this node is a real command).
	if cur != nil && cur.cmd != nil {
		c := cur.cmd
		if strings.TrimSpace(c.Description) != "" {
			lines = append(lines, html.EscapeString(strings.TrimSpace(c.Description)))
		}
		if c.Access == AccessOwnerOnly {
			lines = append(lines, "🔒 <i>仅限管理员</i>")
		}

		// Usage.
		if strings.TrimSpace(c.Usage) != "" {
			lines = append(lines, "", "<b>用法</b>")
			lines = append(lines, "<code>"+html.EscapeString(strings.TrimSpace(c.Usage))+"</code>")
		}

		// Shortcuts (aliases + Telegram-safe menu command).
		short := buildShortcuts(*c)
		if len(short) > 0 {
			lines = append(lines, "", "<b>别名</b>")
			for _, s := range short {
				lines = append(lines, "• <code>"+html.EscapeString(s)+"</code>")
			}
		}
	} else {
		lines = append(lines, "命令组（包含子命令）。")
		if nodeIsOwnerOnly(cur) {
			lines = append(lines, "🔒 <i>仅限管理员</i>")
		}
	}

	// Subcommands.
	if cur != nil && len(cur.subs) > 0 {
		lines = append(lines, "", "<b>子命令</b>")
		for _, name := range cur.subNames() {
			n, _ := cur.sub(name)
			if n == nil {
				continue
			}
			path := append(append([]string(nil), full...), name)
			cmd := "/" + strings.Join(path, " ")
			desc := summarizeNodeDesc(n)
			suffix := ""
			if desc != "" {
				suffix = " — " + html.EscapeString(desc)
			}
			prefix := "• "
			if nodeIsOwnerOnly(n) {
				prefix = "• 🔒 "
			}
			lines = append(lines, prefix+"<code>"+html.EscapeString(cmd)+"</code>"+suffix)
		}
	}

	return strings.Join(filterEmpty(lines), "\n")
}

func summarizeNodeDesc(n *routeNode) string {
	if n == nil {
		return ""
	}
	if n.cmd != nil {
		if d := strings.TrimSpace(n.cmd.Description); d != "" {
			return d
		}
		// If leaf command has no description, fall through.
	}
	// For groups, hint with the first few subcommands.
	kids := n.subNames()
	if len(kids) == 0 {
		return ""
	}
	if len(kids) > 3 {
		return "子命令: " + strings.Join(kids[:3], ", ") + ", …"
	}
	return "子命令: " + strings.Join(kids, ", ")
}

// nodeIsOwnerOnly reports whether a node should carry the lock marker.
// A group counts as owner-only when every command beneath it is.
func nodeIsOwnerOnly(n *routeNode) bool {
	if n == nil {
		return false
	}
	if n.cmd != nil {
		return n.cmd.Access == AccessOwnerOnly
	}
	for _, ch := range n.subs {
		if !nodeIsOwnerOnly(ch) {
			return false
		}
	}
	return true
}

// buildShortcuts lists the other spellings of a command: its aliases
// (including CJK ones like 油价), their menu-safe variants, and the
// flattened menu command for multi-token routes.
func buildShortcuts(c Command) []string {
	seen := map[string]bool{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
		}
	}

	if menu, ok := telegramCommandNameFromRoute(routeTokens(c.Route)); ok {
		add(menu)
	}
	for _, a := range c.Aliases {
		a = strings.TrimSpace(a)
		if a == "" || strings.Contains(a, " ") {
			continue
		}
		add(a)
		add(sanitizeTelegramCommand(a))
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func filterEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
