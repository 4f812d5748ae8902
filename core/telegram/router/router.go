package router

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/telegram/callbacks"
)

// Router routes decoded webhook updates through the registry:
// callbacks by key, then commands, then the text fallback.
type Router struct {
	reg     *Registry
	handler HandlerFunc
	codeOf  ErrorCoder
}

// Options configures a Router.
type Options struct {
	// Middlewares wrap routing, outermost first. Nil uses Recover and Logger.
	Middlewares []MiddlewareFunc
	// ErrorCode maps handler errors to stable codes for the summary log.
	ErrorCode ErrorCoder
}

// New builds a Router over reg.
func New(reg *Registry, opts Options) *Router {
	if reg == nil {
		reg = NewRegistry()
	}
	rt := &Router{reg: reg, codeOf: opts.ErrorCode}
	mws := opts.Middlewares
	if mws == nil {
		mws = []MiddlewareFunc{RecoverMiddleware, LoggerMiddleware}
	}
	h := HandlerFunc(rt.route)
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	rt.handler = h
	return rt
}

// Route handles one update. Unrecognized shapes yield StatusIgnored.
func (rt *Router) Route(ctx context.Context, upd *tele.Update) (Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return rt.handler(ctx, upd)
}

func (rt *Router) route(ctx context.Context, upd *tele.Update) (Status, error) {
	start := time.Now()
	switch {
	case upd == nil:
		return StatusIgnored, nil
	case upd.Callback != nil:
		return rt.routeCallback(ctx, upd.Callback, start)
	case upd.Message != nil && upd.Message.Text != "":
		return rt.routeMessage(ctx, upd.Message, start)
	}
	rt.logHandlerSummary(ctx, "unsupported", start, StatusIgnored, nil)
	return StatusIgnored, nil
}

func (rt *Router) routeCallback(ctx context.Context, cb *tele.Callback, start time.Time) (Status, error) {
	key, payload := callbacks.ParseData(cb.Data)
	name := "callback." + normalizeHandlerName(key)

	h, ok := rt.reg.GetCallback(key)
	if !ok || h == nil {
		h, _ = rt.reg.fallbacks()
	}
	if h == nil {
		rt.logHandlerSummary(ctx, name, start, StatusIgnored, nil)
		return StatusIgnored, nil
	}
	return rt.handleWithSummary(ctx, name, start, func(ctx context.Context) (Status, error) {
		return h(ctx, cb, payload)
	})
}

func (rt *Router) routeMessage(ctx context.Context, msg *tele.Message, start time.Time) (Status, error) {
	if key, cmd, ok := rt.reg.LookupCommand(msg.Text); ok {
		return rt.handleWithSummary(ctx, normalizeHandlerName(key), start, func(ctx context.Context) (Status, error) {
			return cmd.Handler(ctx, msg)
		})
	}
	if _, fb := rt.reg.fallbacks(); fb != nil {
		return rt.handleWithSummary(ctx, "text", start, func(ctx context.Context) (Status, error) {
			return fb(ctx, msg)
		})
	}
	rt.logHandlerSummary(ctx, "unknown_text", start, StatusIgnored, nil)
	return StatusIgnored, nil
}
