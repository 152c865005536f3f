package remote

import (
	"io"

	"github.com/sirupsen/logrus"
)

func newQuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
