package sesh

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerNilFallsBackToStandard(t *testing.T) {
	custom := logrus.New()
	SetLogger(custom)
	assert.Equal(t, logrus.FieldLogger(custom), logger)

	SetLogger(nil)
	assert.Equal(t, logrus.FieldLogger(logrus.StandardLogger()), logger)
}

func TestLogWithTargetSetsField(t *testing.T) {
	custom := logrus.New()
	SetLogger(custom)
	defer SetLogger(nil)

	entry := logWithTarget(logTargetMiddleware)
	assert.Equal(t, logTargetMiddleware, entry.Data["target"])
}
