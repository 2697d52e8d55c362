package command

import (
	"strings"

	"warung/internal/core"
)

// DefaultPrefix marks a chat line as a command.
const DefaultPrefix = "/"

// Parser maps chat lines to commands using its own alias table.
type Parser struct {
	prefix string
	table  map[string]Name
}

// NewParser builds a parser with the standard alias table.
// An empty prefix falls back to DefaultPrefix.
func NewParser(prefix string) *Parser {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Parser{
		prefix: prefix,
		table: map[string]Name{
			"help":     Help,
			"start":    Help,
			"bantuan":  Help,
			"masuk":    RecordIncome,
			"income":   RecordIncome,
			"keluar":   RecordExpense,
			"expense":  RecordExpense,
			"belanja":  RecordPurchase,
			"purchase": RecordPurchase,
			"laporan":  Report,
			"report":   Report,
			"untung":   ProfitToday,
			"profit":   ProfitToday,
			"menu":     Menu,
			"hapus":    DeleteLast,
			"undo":     DeleteLast,
			"delete":   DeleteLast,
		},
	}
}

// Prefix returns the command prefix.
func (p *Parser) Prefix() string {
	return p.prefix
}

// Parse tokenizes text and validates the arguments of the command it names.
func (p *Parser) Parse(text string) (Command, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || !strings.HasPrefix(tokens[0], p.prefix) {
		return Command{}, ErrNotCommand
	}

	word := strings.ToLower(tokens[0])
	name, ok := p.table[strings.TrimPrefix(word, p.prefix)]
	if !ok {
		return Command{}, &UnknownCommandError{Word: word}
	}

	cmd := Command{Name: name, Word: word}
	args := tokens[1:]

	switch name {
	case RecordIncome:
		return p.parseIncome(cmd, args)
	case RecordExpense, RecordPurchase:
		return p.parseOutgoing(cmd, args)
	case Report:
		period := ""
		if len(args) > 0 {
			period = args[0]
		}
		cmd.Period = core.ParsePeriod(period)
		return cmd, nil
	default:
		return cmd, nil
	}
}

func (p *Parser) parseIncome(cmd Command, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &UsageError{Command: cmd.Name, Word: cmd.Word}
	}
	item, err := parseItem(cmd, args[0])
	if err != nil {
		return Command{}, err
	}
	price, err := core.ParseAmount(args[1])
	if err != nil {
		return Command{}, &ValidationError{Command: cmd.Name, Field: "price", Value: args[1], Err: err}
	}
	qty := int64(1)
	if len(args) > 2 {
		qty = core.ParseQuantity(args[2])
	}
	if _, ok := core.MulAmount(price, qty); !ok {
		return Command{}, &ValidationError{Command: cmd.Name, Field: "price", Value: args[1], Err: core.ErrInvalidAmount}
	}

	cmd.Item = item
	cmd.Amount = price
	cmd.Quantity = qty
	return cmd, nil
}

func (p *Parser) parseOutgoing(cmd Command, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &UsageError{Command: cmd.Name, Word: cmd.Word}
	}
	item, err := parseItem(cmd, args[0])
	if err != nil {
		return Command{}, err
	}
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return Command{}, &ValidationError{Command: cmd.Name, Field: "amount", Value: args[1], Err: err}
	}

	cmd.Item = item
	cmd.Amount = amount
	cmd.Quantity = 1
	return cmd, nil
}

func parseItem(cmd Command, raw string) (string, error) {
	item := core.NormalizeItem(raw)
	if item == "" {
		return "", &ValidationError{Command: cmd.Name, Field: "item", Value: raw, Err: core.ErrEmptyItem}
	}
	return item, nil
}
