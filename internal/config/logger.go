package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the CLI logger from the log section.
func NewLogger(c LogConfig, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	level := c.Level
	if level == "" {
		level = "warning"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	switch c.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return log, nil
}
