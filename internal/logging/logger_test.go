package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.Info("device ready", "udn", "uuid:abc", "services", 3)

	line := buf.String()
	if !strings.Contains(line, "[info]") {
		t.Errorf("missing level tag: %q", line)
	}
	if !strings.Contains(line, "device ready") {
		t.Errorf("missing message: %q", line)
	}
	if !strings.Contains(line, "udn=uuid:abc") {
		t.Errorf("missing attribute: %q", line)
	}
}

func TestComponentPromotion(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf}).WithComponent("ssdp")

	logger.Debug("socket open")

	line := buf.String()
	if !strings.Contains(line, "ssdp: socket open") {
		t.Errorf("component not promoted into header: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component rendered twice: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}

	logger.SetLevel(LevelDebug)
	logger.Info("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("message missing after SetLevel: %q", buf.String())
	}
}

func TestQuotedAttributeValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.Info("msg", "reason", "connection refused by peer")

	if !strings.Contains(buf.String(), `reason="connection refused by peer"`) {
		t.Errorf("value with spaces not quoted: %q", buf.String())
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	logger.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("not JSON output: %q", buf.String())
	}
}
