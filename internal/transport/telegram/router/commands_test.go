package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return kit.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func (f *fakeAdapter) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func msgUpdate(text string) kit.Update {
	return kit.Update{Message: &kit.Message{ID: 1, ChatID: 100, FromID: 7, Text: text}}
}

// newTestManager registers a gold command with a Chinese alias and drains
// enqueued jobs synchronously.
func newTestManager(t *testing.T, handled chan string) (*CommandManager, *fakeAdapter) {
	t.Helper()
	ad := &fakeAdapter{}
	m := NewCommandManager(logx.Nop(), ad, &ConfigManager{}, &Services{}, []int64{7})
	m.SetRegistry([]Command{
		{
			Route:       "gold",
			Aliases:     []string{"金币比例"},
			Description: "查询金币比例",
			Handle: func(ctx context.Context, req *Request) error {
				handled <- req.Command + "|" + strings.Join(req.Args, ",")
				return nil
			},
		},
		{
			Route:   "fuel",
			Aliases: []string{"油价"},
			Handle: func(ctx context.Context, req *Request) error {
				handled <- req.Command + "|" + strings.Join(req.Args, ",")
				return nil
			},
		},
		{
			Route:  "storage compact",
			Access: AccessOwnerOnly,
			Handle: func(ctx context.Context, req *Request) error {
				handled <- req.Command
				return nil
			},
		},
	})
	return m, ad
}

func drainOne(t *testing.T, m *CommandManager, handled chan string) string {
	t.Helper()
	select {
	case job := <-m.jobs:
		job()
	case <-time.After(time.Second):
		t.Fatal("no job enqueued")
	}
	select {
	case s := <-handled:
		return s
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
		return ""
	}
}

func TestRouteSlashCommand(t *testing.T) {
	handled := make(chan string, 1)
	m, _ := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("/gold"))
	if got := drainOne(t, m, handled); got != "gold|" {
		t.Fatalf("got %q", got)
	}
}

func TestRouteBareChineseAlias(t *testing.T) {
	handled := make(chan string, 1)
	m, _ := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("金币比例"))
	if got := drainOne(t, m, handled); got != "gold|" {
		t.Fatalf("got %q", got)
	}

	m.routeMessage(context.Background(), msgUpdate("油价 广东 92# 8.5"))
	if got := drainOne(t, m, handled); got != "fuel|广东,92#,8.5" {
		t.Fatalf("got %q", got)
	}
}

func TestRouteBareUnknownTextIsSilent(t *testing.T) {
	handled := make(chan string, 1)
	m, ad := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("随便聊聊天气"))
	select {
	case <-m.jobs:
		t.Fatal("unexpected job for plain chatter")
	default:
	}
	if got := ad.texts(); len(got) != 0 {
		t.Fatalf("bot replied to chatter: %v", got)
	}
}

func TestRouteUnknownSlashCommandReplies(t *testing.T) {
	handled := make(chan string, 1)
	m, ad := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("/nope"))
	got := ad.texts()
	if len(got) != 1 || !strings.Contains(got[0], "/help") {
		t.Fatalf("got %v", got)
	}
}

func TestRouteSubcommandAndOwnerGate(t *testing.T) {
	handled := make(chan string, 1)
	m, ad := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("/storage compact"))
	if got := drainOne(t, m, handled); got != "storage compact" {
		t.Fatalf("got %q", got)
	}

	// Non-owner is rejected before enqueue.
	up := kit.Update{Message: &kit.Message{ID: 2, ChatID: 100, FromID: 999, Text: "/storage compact"}}
	m.routeMessage(context.Background(), up)
	select {
	case <-m.jobs:
		t.Fatal("owner-only command enqueued for non-owner")
	default:
	}
	got := ad.texts()
	if len(got) == 0 || !strings.Contains(got[len(got)-1], "无权限") {
		t.Fatalf("missing rejection reply: %v", got)
	}
}

func TestRouteCommandWithBotMention(t *testing.T) {
	handled := make(chan string, 1)
	m, _ := newTestManager(t, handled)

	m.routeMessage(context.Background(), msgUpdate("/gold@price_bot"))
	if got := drainOne(t, m, handled); got != "gold|" {
		t.Fatalf("got %q", got)
	}
}

func TestHelpListsCommands(t *testing.T) {
	handled := make(chan string, 1)
	m, _ := newTestManager(t, handled)

	txt := m.helpText(nil)
	for _, want := range []string{"/fuel", "/gold", "/help", "命令列表"} {
		if !strings.Contains(txt, want) {
			t.Fatalf("help missing %q:\n%s", want, txt)
		}
	}
}
