package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
)

func TestRollbarLogger_localFields(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs).Sugar(), core.NewTestConfig(""))
	logger.Enable(false)

	err := errors.New("boom")
	usr := user.User{ID: "u-1", Username: "learner"}
	logger.Error("issuing certificate", err, map[string]interface{}{"course_id": "c-1"}, usr)

	entries := logs.All()
	if !assert.Len(t, entries, 1) {
		return
	}
	ctx := entries[0].ContextMap()
	assert.Equal(t, "issuing certificate", entries[0].Message)
	assert.Equal(t, "c-1", ctx["course_id"])
	assert.Equal(t, "u-1", ctx["user_id"])
	assert.Equal(t, "boom", ctx["error"])
}
