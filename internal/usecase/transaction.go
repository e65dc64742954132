package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// Transaction is a saga over stores without shared transactions. Steps run in
// order; when one fails, the undo of every step that already succeeded runs
// newest first.
type Transaction struct {
	steps  []txStep
	logger *slog.Logger
}

type txStep struct {
	name string
	do   func(context.Context) error
	undo func(context.Context) error
}

func NewTransaction(logger *slog.Logger) *Transaction {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transaction{logger: logger}
}

// Step registers do together with the undo that reverts it. undo may be nil.
func (t *Transaction) Step(name string, do, undo func(context.Context) error) {
	t.steps = append(t.steps, txStep{name: name, do: do, undo: undo})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, s := range t.steps {
		if err := s.do(ctx); err != nil {
			// The caller may be gone; the undo must still run.
			t.rollback(context.WithoutCancel(ctx), t.steps[:i])
			return fmt.Errorf("step %q failed after %d succeeded: %w", s.name, i, err)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, done []txStep) {
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.undo == nil {
			continue
		}
		if err := s.undo(ctx); err != nil {
			t.logger.Error("undo failed; data may be inconsistent", "step", s.name, "error", err)
		}
	}
}
