package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "pricebot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h so that m[0] runs outermost.
func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// reqLogger prefers the per-request logger (which carries req_id and
// plugin fields) over the manager's base logger.
func reqLogger(base logx.Logger, req *Request) logx.Logger {
	if req != nil && !req.Logger.IsZero() {
		return req.Logger
	}
	return base
}

// MWTimeout bounds handler execution. Zero or negative means no limit.
func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(tctx, req)
		}
	}
}

// MWPanicRecover converts handler panics into errors so one broken
// command can't take down the dispatch loop.
func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					reqLogger(log, req).Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog records one line per handled command. Fast successful
// requests log at DEBUG so INFO stays readable on busy chats.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			took := time.Since(start)

			logger := reqLogger(log, req)
			fields := []logx.Field{
				logx.Int64("chat_id", req.Chat.ChatID),
				logx.Int64("from_id", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", took),
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(fields, logx.Any("err", err))...)
			case took >= 750*time.Millisecond:
				logger.Info("request ok", fields...)
			default:
				logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}
