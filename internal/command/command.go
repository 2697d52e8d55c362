// Package command turns a chat line into a typed ledger command.
package command

import (
	"errors"
	"fmt"

	"warung/internal/core"
)

// Name identifies a command independently of the word the user typed.
type Name string

const (
	Help           Name = "help"
	RecordIncome   Name = "record-income"
	RecordExpense  Name = "record-expense"
	RecordPurchase Name = "record-purchase"
	Report         Name = "report"
	ProfitToday    Name = "profit-today"
	Menu           Name = "menu"
	DeleteLast     Name = "delete-last"
)

// Command is a parsed and validated command. Only the fields relevant to
// Name are set.
type Command struct {
	Name     Name
	Word     string // the command token as typed, prefix included
	Item     string
	Amount   int64 // unit price for RecordIncome, total otherwise
	Quantity int64
	Period   core.Period
}

// ErrNotCommand is returned for text that does not start with the prefix.
var ErrNotCommand = errors.New("not a command")

// UnknownCommandError is returned for prefixed words missing from the table.
type UnknownCommandError struct {
	Word string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Word)
}

// UsageError means the command is missing required arguments.
type UsageError struct {
	Command Name
	Word    string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: missing arguments", e.Command)
}

// ValidationError means an argument is present but unusable.
type ValidationError struct {
	Command Name
	Field   string
	Value   string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s %q: %v", e.Command, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
