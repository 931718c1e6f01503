package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() {
		InfoLogger, FatalLogger = nil, nil
	})

	require.NoError(t, Init("debug", true))
	require.NotNil(t, InfoLogger)
	require.NotNil(t, FatalLogger)

	Info("cycle %d done", 1)
	With(zap.String("job", "trade")).Info("with fields")
}

func TestInitBadLevel(t *testing.T) {
	require.Error(t, Init("loud", false))
}

func TestLogBeforeInit(t *testing.T) {
	InfoLogger = nil
	t.Cleanup(func() { InfoLogger = nil })

	require.NotPanics(t, func() { Error("no logger yet: %v", "ok") })
}

func TestSetServiceName(t *testing.T) {
	old := SetServiceName("signal_trader")
	t.Cleanup(func() { SetServiceName(old) })

	require.Equal(t, "signal_trader", SetServiceName("signal_trader"))
}
