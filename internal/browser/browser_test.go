package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"standard", "evasive"} {
		got, err := ParseStrategy(s)
		if err != nil || string(got) != s {
			t.Errorf("ParseStrategy(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStrategy("headful"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestProvision_ConfiguredBinMissing(t *testing.T) {
	l := NewRodLauncher(config.BrowserConfig{Bin: filepath.Join(t.TempDir(), "chrome")}, zerolog.Nop())
	err := l.Provision(context.Background())
	if !errors.Is(err, ErrBrowserNotFound) {
		t.Fatalf("Provision() error = %v, want ErrBrowserNotFound", err)
	}
}

func TestProvision_ConfiguredBinPresent(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	l := NewRodLauncher(config.BrowserConfig{Bin: bin}, zerolog.Nop())
	if err := l.Provision(context.Background()); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if l.Bin() != bin {
		t.Errorf("Bin() = %q, want %q", l.Bin(), bin)
	}
}
