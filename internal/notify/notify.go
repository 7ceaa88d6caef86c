// Package notify implements the user-facing transient notification sink.
package notify

import (
	"github.com/draftforge/draftforge/internal"
	"github.com/fatih/color"
	"github.com/shopmonkeyus/go-common/logger"
)

// LoggerNotifier routes transient notifications to the structured logger.
type LoggerNotifier struct {
	logger logger.Logger
}

var _ internal.Notifier = (*LoggerNotifier)(nil)

func NewLoggerNotifier(logger logger.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger.WithPrefix("[notify]")}
}

func (n *LoggerNotifier) Notify(notification internal.Notification) {
	switch notification.Severity {
	case internal.SeverityError:
		n.logger.Error("%s", notification.Message)
	case internal.SeverityWarning:
		n.logger.Warn("%s", notification.Message)
	default:
		n.logger.Info("%s", notification.Message)
	}
}

// ConsoleNotifier prints transient notifications for interactive CLI use.
type ConsoleNotifier struct{}

var _ internal.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) Notify(notification internal.Notification) {
	switch notification.Severity {
	case internal.SeverityError:
		color.Red("%s", notification.Message)
	case internal.SeverityWarning:
		color.Yellow("%s", notification.Message)
	default:
		color.White("%s", notification.Message)
	}
}
