// Package bot routes normalized chat messages to ledger operations and sends
// the formatted reply back to the conversation.
package bot

import (
	"context"
	"errors"
	"fmt"

	"warung/internal/channel"
	"warung/internal/command"
	"warung/internal/core"
	"warung/internal/ledger"
	applog "warung/internal/log"
	"warung/internal/reply"
)

// Ledger is the subset of ledger.Service the dispatcher needs.
type Ledger interface {
	RecordIncome(ctx context.Context, owner, item string, unitPrice, qty int64) (core.Transaction, error)
	RecordExpense(ctx context.Context, owner, item string, amount int64) (core.Transaction, error)
	RecordPurchase(ctx context.Context, owner, item string, amount int64) (core.Transaction, error)
	DeleteLast(ctx context.Context, owner string) (core.Transaction, error)
	ProfitToday(ctx context.Context, owner string) (ledger.ProfitSummary, error)
	Report(ctx context.Context, owner string, period core.Period) (ledger.Report, error)
}

type handlerFunc func(ctx context.Context, owner string, cmd command.Command) (string, error)

// Dispatcher is the single error boundary for chat commands. It keeps no state
// between messages.
type Dispatcher struct {
	parser    *command.Parser
	ledger    Ledger
	formatter *reply.Formatter
	sender    channel.Sender
	logger    *applog.Logger
	events    *applog.StructuredLogger
	handlers  map[command.Name]handlerFunc
}

func NewDispatcher(parser *command.Parser, svc Ledger, formatter *reply.Formatter, sender channel.Sender, logger *applog.Logger) *Dispatcher {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentBot)

	d := &Dispatcher{
		parser:    parser,
		ledger:    svc,
		formatter: formatter,
		sender:    sender,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
	d.handlers = map[command.Name]handlerFunc{
		command.Help:           d.help,
		command.Menu:           d.menu,
		command.RecordIncome:   d.recordIncome,
		command.RecordExpense:  d.recordExpense,
		command.RecordPurchase: d.recordPurchase,
		command.ProfitToday:    d.profitToday,
		command.Report:         d.report,
		command.DeleteLast:     d.deleteLast,
	}
	return d
}

// Handle processes one message using the dispatcher's own sender.
func (d *Dispatcher) Handle(ctx context.Context, msg channel.Message) error {
	return d.HandleWith(ctx, msg, d.sender)
}

// HandleWith processes one message and delivers the reply through sender.
// Plain text is ignored. Ledger failures become a generic failure reply; only
// a failing sender is returned to the caller.
func (d *Dispatcher) HandleWith(ctx context.Context, msg channel.Message, sender channel.Sender) error {
	text, ok := d.resolve(ctx, msg)
	if !ok {
		return nil
	}
	if err := sender.SendText(ctx, msg.ConversationID, text); err != nil {
		d.logger.ErrorContext(ctx, "Failed to send reply",
			applog.FieldConversation, msg.ConversationID,
			applog.FieldError, err)
		return fmt.Errorf("send reply to %s: %w", msg.ConversationID, err)
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, msg channel.Message) (string, bool) {
	cmd, err := d.parser.Parse(msg.Text)
	if err != nil {
		return d.parseFailure(ctx, msg, err)
	}

	handle, ok := d.handlers[cmd.Name]
	if !ok {
		return d.formatter.Unrecognized(), true
	}

	d.logger.DebugContext(ctx, "Dispatching command",
		applog.FieldConversation, msg.ConversationID,
		applog.FieldCommand, cmd.Name)

	text, err := handle(ctx, msg.ConversationID, cmd)
	if err != nil {
		d.events.LogError(ctx, "Command failed", err, applog.OpDispatch,
			applog.NewFields().WithMessage(msg.ConversationID, string(cmd.Name)))
		return d.formatter.Failure(), true
	}
	return text, true
}

func (d *Dispatcher) parseFailure(ctx context.Context, msg channel.Message, err error) (string, bool) {
	var (
		unknown *command.UnknownCommandError
		usage   *command.UsageError
		invalid *command.ValidationError
	)
	switch {
	case errors.Is(err, command.ErrNotCommand):
		return "", false
	case errors.As(err, &unknown):
		return d.formatter.Unrecognized(), true
	case errors.As(err, &usage):
		return d.formatter.Usage(usage.Command), true
	case errors.As(err, &invalid):
		d.logger.DebugContext(ctx, "Rejected command argument",
			applog.FieldConversation, msg.ConversationID,
			applog.FieldCommand, invalid.Command,
			applog.FieldError, err)
		return d.formatter.Validation(invalid), true
	default:
		d.logger.ErrorContext(ctx, "Unexpected parse error",
			applog.FieldConversation, msg.ConversationID,
			applog.FieldError, err)
		return d.formatter.Failure(), true
	}
}

func (d *Dispatcher) help(context.Context, string, command.Command) (string, error) {
	return d.formatter.Help(), nil
}

func (d *Dispatcher) menu(context.Context, string, command.Command) (string, error) {
	return d.formatter.Menu(), nil
}

func (d *Dispatcher) recordIncome(ctx context.Context, owner string, cmd command.Command) (string, error) {
	t, err := d.ledger.RecordIncome(ctx, owner, cmd.Item, cmd.Amount, cmd.Quantity)
	if err != nil {
		return "", err
	}
	return d.recorded(ctx, owner, t), nil
}

func (d *Dispatcher) recordExpense(ctx context.Context, owner string, cmd command.Command) (string, error) {
	t, err := d.ledger.RecordExpense(ctx, owner, cmd.Item, cmd.Amount)
	if err != nil {
		return "", err
	}
	return d.recorded(ctx, owner, t), nil
}

func (d *Dispatcher) recordPurchase(ctx context.Context, owner string, cmd command.Command) (string, error) {
	t, err := d.ledger.RecordPurchase(ctx, owner, cmd.Item, cmd.Amount)
	if err != nil {
		return "", err
	}
	return d.recorded(ctx, owner, t), nil
}

func (d *Dispatcher) recorded(ctx context.Context, owner string, t core.Transaction) string {
	d.events.LogRecorded(ctx, owner, t.ID, t.Kind.String(), t.Item, t.Amount)
	return d.formatter.Recorded(t)
}

func (d *Dispatcher) profitToday(ctx context.Context, owner string, _ command.Command) (string, error) {
	sum, err := d.ledger.ProfitToday(ctx, owner)
	if err != nil {
		return "", err
	}
	return d.formatter.Profit(sum), nil
}

func (d *Dispatcher) report(ctx context.Context, owner string, cmd command.Command) (string, error) {
	rep, err := d.ledger.Report(ctx, owner, cmd.Period)
	if err != nil {
		return "", err
	}
	return d.formatter.Report(rep), nil
}

func (d *Dispatcher) deleteLast(ctx context.Context, owner string, _ command.Command) (string, error) {
	t, err := d.ledger.DeleteLast(ctx, owner)
	if errors.Is(err, ledger.ErrNothingToDelete) {
		return d.formatter.NothingToDelete(), nil
	}
	if err != nil {
		return "", err
	}
	return d.formatter.Deleted(t), nil
}
