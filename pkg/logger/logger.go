package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

const serviceName = "socialfeed"

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Packages log through Log from tests too, where main never runs, so a default
// logger is installed here and replaced by Init once config is loaded.
func init() {
	Init("info", "development")
}

// Init configures the process logger. Production output is JSON, everything
// else uses the text formatter for readability.
func Init(level, env string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	Log = logger.WithFields(logrus.Fields{
		"service":        serviceName,
		"is_development": env != "production",
	})
}
