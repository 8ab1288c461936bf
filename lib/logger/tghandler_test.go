package logger

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) NotifyAdmins(text string) {
	r.texts = append(r.texts, text)
}

func testLogger(notifier AdminNotifier) *slog.Logger {
	base := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewTelegramHandler(base, notifier, slog.LevelError))
}

func TestTelegramHandlerForwardsErrors(t *testing.T) {
	notifier := &recordingNotifier{}
	log := testLogger(notifier)

	log.Info("routine startup")
	assert.Empty(t, notifier.texts, "records below the threshold stay in the log only")

	log.Error("database gone", slog.String("error", "connection refused"))
	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "database gone")
	assert.Contains(t, notifier.texts[0], "connection refused")
}

func TestTelegramHandlerKeepsModuleAttrs(t *testing.T) {
	notifier := &recordingNotifier{}
	log := testLogger(notifier).With(slog.String("mod", "core"))

	log.Error("announce failed")
	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "mod: core")
}

func TestNotifyProxy(t *testing.T) {
	proxy := NewNotifyProxy()
	log := testLogger(proxy)

	// before Install the forward goes nowhere and must not panic
	log.Error("early failure")

	notifier := &recordingNotifier{}
	proxy.Install(notifier)
	log.Error("late failure")

	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "late failure")
}
