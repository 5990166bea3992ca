package input

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestScriptReplaysThenEOF(t *testing.T) {
	src := ParseScript(0, "w3\x1b")
	want := []Key{'w', '3', KeyEscape}
	for i, w := range want {
		k, err := src.ReadKey(context.Background())
		if err != nil {
			t.Fatalf("key %d: %v", i, err)
		}
		if k != w {
			t.Errorf("key %d = %s, want %s", i, k, w)
		}
	}
	if _, err := src.ReadKey(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("after script: %v, want io.EOF", err)
	}
}

func TestScriptHonoursContext(t *testing.T) {
	src := NewScript(time.Hour, 'w')
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := src.ReadKey(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("ReadKey ignored cancellation")
	}
}

func TestKeyString(t *testing.T) {
	tests := map[Key]string{KeyEscape: "ESC", 'w': "w", '+': "+", 3: "key(3)"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Key(%d).String() = %q, want %q", int32(k), got, want)
		}
	}
}
