package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestRingBuffer_DropsOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Push(i)
	}

	got := rb.GetAll()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("GetAll() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetAll()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if rb.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rb.Len())
	}
}

func TestLogBuffer_ParsesZerologOutput(t *testing.T) {
	buf := NewLogBuffer(10)
	log := zerolog.New(buf).With().Timestamp().Logger()

	log.Info().Str("component", "extractor").Str("contentKey", "movie:tt1").Msg("captured")
	_, _ = buf.Write([]byte("not json"))

	entries := buf.GetRecentLogs()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != "info" || e.Component != "extractor" || e.Message != "captured" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Fields["contentKey"] != "movie:tt1" {
		t.Errorf("contentKey field = %v", e.Fields["contentKey"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
