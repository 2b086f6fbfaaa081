package srpc

import (
	log "github.com/sirupsen/logrus"
)

// newDefaultLogger returns the package's default structured logger, a
// prefixed logrus.Entry rather than the bare package-level logger.
func newDefaultLogger() *log.Entry {
	return log.WithField("component", "srpc")
}
