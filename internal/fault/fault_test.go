package fault

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errSentinel = errors.New("sentinel")

func TestFatalMessageNamesComponentAndMethod(t *testing.T) {
	err := Fatal("MediumMap", "AddMedium", "medium %d already exists", 3)
	if got, want := err.Error(), "MediumMap::AddMedium: medium 3 already exists"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	if !IsFatal(err) {
		t.Fatalf("expected fatal error")
	}
}

func TestWrapKeepsOriginAndCause(t *testing.T) {
	inner := Wrap("Legacy", "PopulateGraph", fmt.Errorf("volume: %w", errSentinel))
	outer := Wrap("GeometryManager", "ConstructGeometry", inner)
	var fe *Error
	if !errors.As(outer, &fe) {
		t.Fatalf("expected *Error")
	}
	if fe.Component != "Legacy" {
		t.Fatalf("origin lost: %+v", fe)
	}
	if !errors.Is(outer, errSentinel) {
		t.Fatalf("cause not reachable")
	}
	if Wrap("x", "y", nil) != nil {
		t.Fatalf("nil cause must stay nil")
	}
	if IsFatal(errSentinel) {
		t.Fatalf("plain error reported fatal")
	}
}

func TestWarningLogsAtWarnLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Warning(zap.New(core), "FieldController", "UpdateMagField", "no magnetic field is defined")
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].ContextMap()["method"] != "UpdateMagField" {
		t.Fatalf("missing method field: %+v", entries[0].ContextMap())
	}
	Warning(nil, "a", "b", "c")
}
