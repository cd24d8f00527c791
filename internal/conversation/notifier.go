package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
type PrintFunc func(format string, a ...any)

// CLINotifier writes timer messages to stdout with ANSI formatting.
// Urgent lines (actions, completion) are red; the rest cyan.
type CLINotifier struct {
	log     *logger.Logger
	mu      sync.Mutex
	printFn PrintFunc
}

// NewCLINotifier creates a stdout-based notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.printFn("%s%s⏲  %s%s", cyan, bold, message, reset)
	return nil
}

// NotifyUrgent prints an urgent notification in bold red.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.printFn("%s%s🔔 %s%s", red, bold, message, reset)
	return nil
}
