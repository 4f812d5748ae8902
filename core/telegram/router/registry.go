package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
)

// ErrInvalidRegistration is returned for a handler that cannot be registered.
var ErrInvalidRegistration = errors.New("router: invalid registration")

// Registry holds bot commands, callback handlers, and the text fallback.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]CallbackHandler

	callbackNotFound CallbackHandler
	textFallback     MessageHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand adds a command. Names start with a slash; aliases may
// omit it.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	name = strings.ToLower(strings.TrimSpace(name))
	var cause string
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		cause = "incomplete"
	case !strings.HasPrefix(name, "/") || name == "/":
		cause = "no_slash_prefix"
	}
	if cause != "" {
		return r.reject("command", name, cause)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.resolveLocked(name); taken {
		return r.reject("command", name, "duplicate")
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		alias = "/" + strings.TrimPrefix(strings.ToLower(strings.TrimSpace(alias)), "/")
		if _, taken := r.resolveLocked(alias); !taken && alias != "/" {
			r.aliases[alias] = name
		}
	}
	return nil
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler CallbackHandler) error {
	if key == "" || handler == nil {
		return r.reject("callback", key, "incomplete")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return r.reject("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) reject(kind, name, cause string) error {
	logger.LogEvent(context.Background(), logger.TG, slog.LevelWarn, "register."+kind+".skip",
		slog.String("handler", name),
		slog.String("cause", cause),
	)
	return fmt.Errorf("%w: %s %q: %s", ErrInvalidRegistration, kind, name, cause)
}

// resolveLocked maps a command name or alias to its canonical name.
func (r *Registry) resolveLocked(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	canonical, ok := r.aliases[name]
	return canonical, ok
}

// ListCommands returns commands for the Telegram menu, sorted by name.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name[1:], Description: meta.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves message text such as "/start@qa_bot payload" to a
// registered command, returning its canonical name.
func (r *Registry) LookupCommand(text string) (string, Command, bool) {
	name := CommandName(text)
	if name == "" {
		return "", Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.resolveLocked(name)
	if !ok {
		return "", Command{}, false
	}
	return canonical, r.commands[canonical], true
}

// CommandName extracts "/cmd" from message text, dropping the bot mention and
// arguments. Text that is not a command yields "".
func CommandName(text string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	head, _, _ = strings.Cut(head, "\n")
	head, _, _ = strings.Cut(head, "\t")
	head, _, _ = strings.Cut(head, "@")
	if len(head) < 2 || head[0] != '/' {
		return ""
	}
	return strings.ToLower(head)
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (CallbackHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h CallbackHandler) {
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// SetTextFallback sets the handler for text messages that are not commands.
func (r *Registry) SetTextFallback(h MessageHandler) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) fallbacks() (CallbackHandler, MessageHandler) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound, r.textFallback
}

// CommandSetter is the part of the bot API used to publish the command menu.
type CommandSetter interface {
	SetCommands(ctx context.Context, cmds []tele.Command) error
}

// InitBotCommands publishes visible commands to the Telegram command menu.
func InitBotCommands(ctx context.Context, setter CommandSetter, reg *Registry) error {
	cmds := reg.ListCommands(true)
	if err := setter.SetCommands(ctx, cmds); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "register.commands",
		slog.Int("count", len(cmds)),
	)
	return nil
}
