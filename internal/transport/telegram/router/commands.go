package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"pricebot/internal/monitor"
	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	// Route is a space-separated command path, e.g.:
	//   "gold"
	//   "storage compact"
	Route       string
	Aliases     []string // root-level aliases, e.g. ["金币比例", "gr"]
	Description string
	Usage       string
	Access      Access

	PluginName string
	Timeout    time.Duration // optional per-command override
	Handle     HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Path    []string // matched command path tokens
	Command string
	Args    []string

	// Parsed arguments
	RawArgs   []string
	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string

	Adapter     kit.Adapter
	Config      *Config
	Logger      logx.Logger
	Services    *Services
	OwnerUserID []int64
}

type Services struct {
	Scheduler SchedulerPort
	Notifier  NotifierPort
	Plugins   PluginsPort
	Monitors  MonitorsPort

	// AppSupervisor is set by the app once started.
	// It can be nil in minimal/test environments.
	AppSupervisor *Supervisor

	// RuntimeSupervisors exposes additional subsystem supervisors (adapter,
	// router, etc.) for operational commands like /status.
	//
	// Read-only / best-effort; entries may be nil in minimal/test environments.
	RuntimeSupervisors *SupervisorRegistry
}

// PluginsPort exposes read-only plugin runtime state for operational commands.
type PluginsPort interface {
	Snapshot() PluginsSnapshot
}

// MonitorsPort exposes the price-feed runner states for /status.
type MonitorsPort interface {
	Snapshots() []monitor.Snapshot
}

type SchedulerPort interface {
	Enabled() bool
	Snapshot() Snapshot

	AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) (string, error)
	AddInterval(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) (string, error)
	AddDaily(name, atHHMM string, timeout time.Duration, job func(ctx context.Context) error) (string, error)

	Remove(name string) bool
}

type NotifierPort interface {
	Notify(ctx context.Context, n kit.Notification) error
	Send(ctx context.Context, n kit.Notification) error
}

type CommandManager struct {
	mu sync.RWMutex

	root  *routeNode
	alias map[string]*routeNode // alias -> leaf node

	owners []int64

	log     logx.Logger
	adapter kit.Adapter
	cfgm    *ConfigManager
	serv    *Services

	runMu   sync.Mutex
	running bool
	sup     *Supervisor

	jobs chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, cfgm *ConfigManager, serv *Services, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	// copy to avoid callers mutating the slice after construction
	ownCopy := append([]int64(nil), owners...)
	return &CommandManager{
		root:    newRouteTree(),
		alias:   map[string]*routeNode{},
		log:     log,
		adapter: adapter,
		cfgm:    cfgm,
		serv:    serv,
		owners:  ownCopy,
		jobs:    make(chan func(), 256),
	}
}

// Supervisor returns the command manager's internal supervisor (nil if not
// running). Useful for operational visibility (/status).
func (m *CommandManager) Supervisor() *Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *CommandManager) setSupervisor(sup *Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	ownCopy := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = ownCopy
	m.mu.Unlock()
}

func (m *CommandManager) ownersSnapshot() []int64 {
	m.mu.RLock()
	cp := append([]int64(nil), m.owners...)
	m.mu.RUnlock()
	return cp
}

func (m *CommandManager) SetRegistry(cmds []Command) {
	// always inject help
	helper := Command{
		Route:       "help",
		Aliases:     []string{"h", "帮助"},
		Description: "显示帮助",
		Usage:       "/help [cmd] [sub...]",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			text := m.helpText(req.Args)
			_, _ = req.Adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
			return nil
		},
	}
	cmds = append(cmds, helper)

	root := newRouteTree()
	alias := map[string]*routeNode{}
	menuCandidates := make([]Command, 0, len(cmds))

	for _, c := range cmds {
		route := routeTokens(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		cc := c // copy
		root.insert(route, cc)
		menuCandidates = append(menuCandidates, cc)

		leaf := root.lookup(route)
		// Auto aliases to support Telegram /menu autocomplete.
		// Telegram command names are restricted to [a-z0-9_]{1,32}.
		//
		// Do NOT add the canonical single-token command name itself into the
		// alias map, because that would short-circuit subcommand traversal:
		// "/storage compact" would be treated as an alias hit for "storage"
		// and never reach the "storage compact" route.
		if leaf != nil {
			if menu, ok := telegramCommandNameFromRoute(route); ok {
				if len(route) > 1 || (len(route) == 1 && menu != route[0]) {
					if _, exists := alias[menu]; !exists {
						alias[menu] = leaf
					}
				}
			}
		}
		for _, a := range c.Aliases {
			a = strings.TrimSpace(a)
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
			// also add a Telegram-safe alias variant when needed (best-effort)
			if sa := sanitizeTelegramCommand(a); sa != "" {
				if _, exists := alias[sa]; !exists {
					alias[sa] = leaf
				}
			}
		}
	}

	m.mu.Lock()
	m.root = root
	m.alias = alias
	m.mu.Unlock()

	// Best-effort Telegram /menu autocomplete update (non-blocking).
	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok {
		menu := buildTelegramMenuCommands(root, menuCandidates)
		run := func(parent context.Context) {
			ctx, cancel := context.WithTimeout(parent, 5*time.Second)
			defer cancel()
			_ = up.UpdateMenuCommands(ctx, menu)
		}

		// Prefer running under the app supervisor so it's canceled cleanly
		// on shutdown.
		if m.serv != nil && m.serv.AppSupervisor != nil {
			m.serv.AppSupervisor.Go("telegram.menu.update", func(ctx context.Context) error {
				run(ctx)
				return nil
			})
		} else {
			// Fallback for minimal/test environments.
			go run(context.Background())
		}
	}
}

func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	// bounded worker pool
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	// Internal supervisor keeps the worker pool resilient and observable.
	sup := NewSupervisor(ctx,
		WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	if m.serv != nil && m.serv.RuntimeSupervisors != nil {
		m.serv.RuntimeSupervisors.Set("telegram.router", sup)
	}

	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			// Mark as not running before closing so enqueue can degrade gracefully.
			m.setSupervisor(sup, false)
			close(m.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		name := "command.worker." + strconv.Itoa(idx)
		sup.GoRestart(name, func(c context.Context) error {
			m.log.Debug("command worker started", logx.Int("worker", idx))
			defer m.log.Debug("command worker stopped", logx.Int("worker", idx))
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					if job == nil {
						continue
					}
					// A job should never panic (middleware already catches),
					// but keep workers alive if it happens.
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			WithStopOnCleanExit(true),
		)
	}

	defer func() {
		closeJobs()
		// Wait briefly for workers to drain.
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		if m.serv != nil && m.serv.RuntimeSupervisors != nil {
			m.serv.RuntimeSupervisors.Delete("telegram.router")
		}
		m.setSupervisor(nil, false)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("command dispatcher stopping", logx.Any("err", ctx.Err()))
			return nil
		case up, ok := <-updates:
			if !ok {
				m.log.Info("command dispatcher stopped (updates channel closed)")
				return nil
			}
			m.routeMessage(ctx, up)
		}
	}
}

func (m *CommandManager) routeMessage(root context.Context, up kit.Update) {
	if up.Message == nil {
		return
	}
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	// Commands arrive either slash-prefixed ("/gold") or as bare words
	// ("金币比例 ..."). Bare text that matches no registered command is
	// ignored silently so the bot stays quiet in group chatter.
	slash := strings.HasPrefix(text, "/")

	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return
	}
	word := parts[0]
	if slash {
		word = strings.TrimPrefix(word, "/")
		if i := strings.IndexByte(word, '@'); i >= 0 {
			word = word[:i]
		}
	}
	args := []string{}
	if len(parts) > 1 {
		args = parts[1:]
	}

	// snapshot registry
	m.mu.RLock()
	rootNode := m.root
	aliasMap := m.alias
	m.mu.RUnlock()

	// alias as root-level shortcut
	if leaf, ok := aliasMap[word]; ok && leaf != nil && leaf.cmd != nil {
		cmd := *leaf.cmd
		pos, flags, bools := parseFlags(args)
		m.enqueueCommand(root, up, cmd, routeTokens(cmd.Route), pos, args, flags, bools)
		return
	}

	// traverse subcommand tree
	cur, ok := rootNode.sub(word)
	if !ok {
		if slash {
			_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID}, "未知命令，输入 /help 查看帮助", nil)
		}
		return
	}
	path := []string{word}
	for len(args) > 0 {
		nxt := args[0]
		if strings.HasPrefix(nxt, "-") { // flags start, stop subcommand traversal
			break
		}
		child, ok := cur.sub(nxt)
		if !ok {
			break
		}
		cur = child
		path = append(path, nxt)
		args = args[1:]
	}

	// If container node without handler: show help for that path
	if cur.cmd == nil {
		txt := m.helpText(path)
		_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID}, txt, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
		return
	}

	cmd := *cur.cmd
	pos, flags, bools := parseFlags(args)
	m.enqueueCommand(root, up, cmd, path, pos, args, flags, bools)
}

func (m *CommandManager) enqueueCommand(root context.Context, up kit.Update, cmd Command, path []string, args []string, raw []string, flags map[string]string, bools map[string]bool) {
	msg := up.Message
	if msg == nil {
		return
	}

	owners := m.ownersSnapshot()
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.FromID, owners) {
		_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID}, "无权限", nil)
		return
	}

	rid := newReqID()
	reqLog := m.log.With(
		logx.String("rid", rid),
		logx.Int64("chat_id", msg.ChatID),
		logx.Int64("from_id", msg.FromID),
		logx.String("cmd", cmd.Route),
	)

	req := &Request{
		Update:      up,
		Chat:        kit.ChatTarget{ChatID: msg.ChatID},
		FromID:      msg.FromID,
		Path:        path,
		Command:     cmd.Route,
		Args:        args,
		RawArgs:     raw,
		Flags:       flags,
		BoolFlags:   bools,
		ReqID:       rid,
		Adapter:     m.adapter,
		Config:      m.cfgm.Get(),
		Logger:      reqLog,
		Services:    m.serv,
		OwnerUserID: owners,
	}

	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	)

	if !m.tryEnqueue(func() { _ = final(root, req) }) {
		_, _ = m.adapter.SendText(root, req.Chat, "系统繁忙，请稍后再试", nil)
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
