package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Notifier delivers a formatted report.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ConsoleNotifier writes plain-text reports to an io.Writer.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a notifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, StripTags(text)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
