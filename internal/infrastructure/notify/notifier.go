package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notice domain.Notice) error {
	level := slog.LevelInfo
	if notice.Severity == domain.SeverityError {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notice",
		"form_id", notice.FormID,
		"title", notice.Title,
		"message", notice.Message,
		"severity", string(notice.Severity),
	)
	return nil
}

// Fanout delivers every notice to all targets and joins their errors.
type Fanout struct {
	targets []ports.Notifier
}

func NewFanout(targets ...ports.Notifier) *Fanout {
	out := make([]ports.Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return &Fanout{targets: out}
}

func (f *Fanout) Notify(ctx context.Context, notice domain.Notice) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
