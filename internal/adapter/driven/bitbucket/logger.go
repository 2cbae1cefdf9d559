package bitbucket

import (
	"fmt"
	"log/slog"
)

// restyLogger routes resty's internal messages to slog.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	slog.Error("resty: " + fmt.Sprintf(format, v...))
}

func (restyLogger) Warnf(format string, v ...any) {
	slog.Warn("resty: " + fmt.Sprintf(format, v...))
}

func (restyLogger) Debugf(format string, v ...any) {
	slog.Debug("resty: " + fmt.Sprintf(format, v...))
}
