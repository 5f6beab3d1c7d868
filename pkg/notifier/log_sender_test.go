package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSender_DevLogIncludesCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core), true)

	err := sender.SendOTP(context.Background(), "a@b.c", uuid.New(), "042042", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	entries := logs.FilterField(zap.String("otp_code", "042042")).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "[DEV OTP]")
}

func TestLogSender_WithholdsCodeOutsideDev(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core), false)

	err := sender.SendOTP(context.Background(), "a@b.c", uuid.New(), "042042", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	for _, field := range logs.All()[0].Context {
		assert.NotEqual(t, "otp_code", field.Key)
		assert.NotEqual(t, "email", field.Key)
	}
}
