package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide production logger. Components receive it via
// constructor injection and narrow it with Named/With.
func New() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}
