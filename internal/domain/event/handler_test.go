package event

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingHandler_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewLoggingHandler(zap.New(core))

	h.Handle(NewMirrorFailed("t1", "https://mirror/a.jar", 2, errors.New("connection reset")))
	h.Handle(NewVersionsRefreshed("fabric", "1.20.1", 12, 1))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].ContextMap()["mirror"] != "https://mirror/a.jar" {
		t.Errorf("mirror failure entry = %+v", entries[0])
	}
	if entries[1].Level != zapcore.InfoLevel || entries[1].ContextMap()["count"] != int64(12) {
		t.Errorf("refresh entry = %+v", entries[1])
	}
}
