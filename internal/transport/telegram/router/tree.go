package router

import (
	"sort"
	"strings"
)

// routeNode is one token of a command route. Leaves carry the Command;
// interior nodes exist only to group subcommands (e.g. "fuel" above
// "fuel calc").
type routeNode struct {
	name string
	cmd  *Command
	subs map[string]*routeNode
}

func newRouteTree() *routeNode {
	return &routeNode{subs: make(map[string]*routeNode)}
}

// routeTokens splits a route string on whitespace. An empty or blank
// route yields nil.
func routeTokens(route string) []string {
	if route = strings.TrimSpace(route); route == "" {
		return nil
	}
	return strings.Fields(route)
}

func (n *routeNode) insert(route []string, c Command) {
	cur := n
	for _, tok := range route {
		if cur.subs == nil {
			cur.subs = make(map[string]*routeNode)
		}
		next := cur.subs[tok]
		if next == nil {
			next = &routeNode{name: tok, subs: make(map[string]*routeNode)}
			cur.subs[tok] = next
		}
		cur = next
	}
	cur.cmd = &c
}

// lookup walks the tree along path and returns the node it ends on, or
// nil if any token is missing.
func (n *routeNode) lookup(path []string) *routeNode {
	cur := n
	for _, tok := range path {
		if cur = cur.subs[tok]; cur == nil {
			return nil
		}
	}
	return cur
}

func (n *routeNode) sub(name string) (*routeNode, bool) {
	s, ok := n.subs[name]
	return s, ok
}

func (n *routeNode) subNames() []string {
	names := make([]string, 0, len(n.subs))
	for name := range n.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
