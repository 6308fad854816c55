package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func bufLogger(buf *bytes.Buffer, level zerolog.Level) Logger {
	return Logger{base: zerolog.New(buf).Level(level), hasBase: true}
}

func TestLogWritesLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := bufLogger(&buf, zerolog.DebugLevel).With(String("feed", "goldratio"))

	l.Info("cycle done", Int("listings", 5))

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"feed":"goldratio"`, `"listings":5`, "cycle done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}

func TestLogRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := bufLogger(&buf, zerolog.WarnLevel)

	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug below warn must not write: %s", buf.String())
	}
	l.Error("kept", Err(nil))
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error above warn must write: %s", buf.String())
	}
}

func TestZeroLoggerIsSilent(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
	l.Info("nowhere")
	l.With(String("k", "v")).Error("still nowhere")
}
