package util

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()

	WithTenant(WithComponent("provisioner"), "t-1").Info("created router")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["tenant"] != "t-1" || entry["component"] != "provisioner" {
		t.Errorf("missing fields in %v", entry)
	}
	if entry["msg"] != "created router" {
		t.Errorf("msg = %v, want %q", entry["msg"], "created router")
	}
}

func TestWithLine(t *testing.T) {
	e := WithLine(WithComponent("batch"), 12)
	if e.Data["line"] != 12 {
		t.Errorf("line field = %v, want 12", e.Data["line"])
	}
	if e.Data["component"] != "batch" {
		t.Errorf("component field = %v, want batch", e.Data["component"])
	}
}

func TestEntryOr(t *testing.T) {
	own := WithField("run_id", "abc")
	if got := EntryOr(own, "fleet"); got != own {
		t.Error("EntryOr should return the supplied entry")
	}

	got := EntryOr(nil, "fleet")
	if got.Data["component"] != "fleet" {
		t.Errorf("component field = %v, want fleet", got.Data["component"])
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	Logger.SetLevel(logrus.InfoLevel)

	WithComponent("resolver").Debug("listing routers")
	if strings.Contains(buf.String(), "listing routers") {
		t.Error("debug message should be suppressed at info level")
	}

	WithComponent("resolver").Info("reused router")
	if !strings.Contains(buf.String(), "reused router") {
		t.Error("info message should be written at info level")
	}
}
