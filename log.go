package sesh

import "github.com/sirupsen/logrus"

// Log targets. These double as the "target" field on every entry this
// package emits, standing in for the discrete targets the spec calls out
// (middleware, session, session::rejection).
const (
	logTargetMiddleware = "middleware"
	logTargetSession    = "session"
	logTargetRejection  = "session::rejection"
)

// logger is the package-level sink every file in this module writes
// through. Defaults to logrus's standard logger; SetLogger overrides it,
// e.g. to route through an application's own configured instance.
var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger every sesh component writes through.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

func logWithTarget(target string) *logrus.Entry {
	return logger.WithField("target", target)
}
