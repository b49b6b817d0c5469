package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/questline/pkg/domain"
)

type hookFunc = func(context.Context, *domain.SessionEvent)

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var start, executed, complete []hookFunc
	for _, h := range sets {
		if h.OnSessionStart != nil {
			start = append(start, h.OnSessionStart)
		}
		if h.OnNodeExecuted != nil {
			executed = append(executed, h.OnNodeExecuted)
		}
		if h.OnSessionComplete != nil {
			complete = append(complete, h.OnSessionComplete)
		}
	}
	return domain.LifecycleHooks{
		OnSessionStart:    chain(start),
		OnNodeExecuted:    chain(executed),
		OnSessionComplete: chain(complete),
	}
}

func chain(fns []hookFunc) hookFunc {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(ctx context.Context, ev *domain.SessionEvent) {
		for _, fn := range fns {
			fn(ctx, ev)
		}
	}
}

// LoggingHooks logs every lifecycle event at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, ev *domain.SessionEvent) {
		logger.InfoContext(ctx, string(ev.Type),
			"session_id", ev.SessionID,
			"template_id", ev.TemplateID,
			"node_id", ev.NodeID,
			"seq", ev.Seq,
		)
	}
	return domain.LifecycleHooks{
		OnSessionStart:    log,
		OnNodeExecuted:    log,
		OnSessionComplete: log,
	}
}
