// Package logging constructs the structured logrus logger shared by the
// producer loop, the fetcher and the submission RPC, matching the
// level/formatter wiring the rest of this codebase's servers use.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level ("debug", "info", "warn",
// "error"; empty defaults to "info"), writing JSON lines to stderr.
func New(level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return log, nil
}
