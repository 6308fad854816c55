package notifier

import (
	"context"
	"time"

	kit "pricebot/internal/transport"
	logx "pricebot/pkg/logx"
)

// Send delivers a single notification synchronously and reports the
// outcome. It shares the service rate limiter with the async pipeline
// but performs no retry and no dedup: callers that need to know whether
// a message actually went out (so they can advance "last notified"
// bookkeeping) own their own re-attempt policy, typically "try again on
// the next cycle".
func (s *Service) Send(ctx context.Context, n kit.Notification) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	enabled := s.cfg.Enabled
	lim := s.limiter
	ad := s.adapter
	log := s.log
	s.mu.Unlock()

	if !enabled {
		return ErrDisabled
	}
	if ad == nil {
		return ErrStopped
	}

	text := prefixForPriority(n.Priority) + n.Text
	if text == "" {
		return nil
	}

	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_, err := ad.SendText(callCtx, n.Target, text, n.Options)
	cancel()
	if err != nil {
		log.Debug("sync send failed", logx.Err(err), logx.Int64("chat_id", n.Target.ChatID))
		s.publishEvent("notifier.failed", n, "", err)
		return err
	}

	s.appendHistory(text)
	s.publishEvent("notifier.sent", n, "", nil)
	return nil
}
