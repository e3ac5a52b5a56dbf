// Package notify sends job-completion notifications (spec §6). Grounded
// architecturally on the teacher's internal/email package (Sender
// interface, LogSender for local dev vs a real third-party sender
// otherwise) with the WHAT swapped from transactional email (Resend) to
// Telegram, per spec.md §6's explicit requirement.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// Notifier sends a composed message to either the silent or the alert
// destination depending on the run's outcome.
type Notifier interface {
	NotifyRun(ctx context.Context, job *domain.Job, run *domain.JobRun, hostname string, position int) error
}

// LogNotifier logs the composed message instead of sending it — used in
// local/dev mode, mirroring the teacher's email.LogSender.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) NotifyRun(_ context.Context, job *domain.Job, run *domain.JobRun, hostname string, position int) error {
	silent := run.Status == domain.RunOK
	n.logger.Info("notification (local dev)", "silent", silent, "message", compose(job, run, hostname, position))
	return nil
}

// TelegramNotifier sends via Telegram's sendMessage, silent for ok runs and
// alerting otherwise, per spec §6.
type TelegramNotifier struct {
	bot        *bot.Bot
	silentChat int64
	alertChat  int64
	parseMode  string
	logger     *slog.Logger
}

// NewTelegramNotifier builds a notifier from a NotificationConfig's token
// and chat ids.
func NewTelegramNotifier(cfg domain.NotificationConfig, logger *slog.Logger) (*TelegramNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := bot.New(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	silentChat, err := strconv.ParseInt(cfg.SilentChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse silent chat id: %w", err)
	}
	alertChat, err := strconv.ParseInt(cfg.AlertChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse alert chat id: %w", err)
	}
	return &TelegramNotifier{
		bot:        b,
		silentChat: silentChat,
		alertChat:  alertChat,
		parseMode:  cfg.ParseMode,
		logger:     logger.With("component", "notify"),
	}, nil
}

func (n *TelegramNotifier) NotifyRun(ctx context.Context, job *domain.Job, run *domain.JobRun, hostname string, position int) error {
	chatID := n.silentChat
	disableNotification := true
	if run.Status != domain.RunOK {
		chatID = n.alertChat
		disableNotification = false
	}

	params := &bot.SendMessageParams{
		ChatID:              chatID,
		Text:                compose(job, run, hostname, position),
		DisableNotification: disableNotification,
	}
	if n.parseMode != "" {
		params.ParseMode = models.ParseMode(n.parseMode)
	}

	if _, err := n.bot.SendMessage(ctx, params); err != nil {
		n.logger.Error("send telegram notification", "error", err)
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// compose builds the notification text: job name, the run's scheduled
// minute, host, order value & position, duration, step count, and for errors
// the first failing step's error and attempts. The scheduled minute is the
// run key's scheduled_for as stored, in UTC; it is not converted to the
// agent's configured zone.
func compose(job *domain.Job, run *domain.JobRun, hostname string, position int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", job.Name, run.Status)
	fmt.Fprintf(&b, "scheduled_for: %s\n", run.ScheduledFor.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "host: %s\n", hostname)
	fmt.Fprintf(&b, "order: %d (position %d)\n", run.ExecutedOrderValue, position)
	if run.StartAt != nil && run.EndAt != nil {
		fmt.Fprintf(&b, "duration: %s\n", run.EndAt.Sub(*run.StartAt))
	}
	fmt.Fprintf(&b, "steps: %d\n", len(run.Steps))

	if run.Status == domain.RunError {
		if step, ok := run.FirstFailure(); ok {
			fmt.Fprintf(&b, "first failure: step %d: %s (attempts=%d)\n", step.Index, step.Error, step.Attempts)
		}
	}
	return b.String()
}
