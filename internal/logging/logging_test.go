package logging

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestGetLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"":      logrus.InfoLevel,
		"info":  logrus.InfoLevel,
		"DEBUG": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for in, want := range cases {
		got, err := GetLevel(in)
		if err != nil {
			t.Fatalf("GetLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("GetLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetLevelRejectsUnknown(t *testing.T) {
	if _, err := GetLevel("trace-ish"); err == nil {
		t.Fatal("expected error for unrecognized level")
	}
}

func TestGetFormatter(t *testing.T) {
	if _, ok := GetFormatter("text").(*prettyFormatter); !ok {
		t.Fatal("expected text format to select prettyFormatter")
	}
	if _, ok := GetFormatter("json").(*logrus.JSONFormatter); !ok {
		t.Fatal("expected default format to select JSONFormatter")
	}
	if f, ok := GetFormatter("json-pretty").(*logrus.JSONFormatter); !ok || !f.PrettyPrint {
		t.Fatal("expected json-pretty to select a pretty-printing JSONFormatter")
	}
}

func TestPrettyFormatterIncludesLevelMessageAndFields(t *testing.T) {
	e := logrus.WithField("accountId", "acct1")
	e.Message = "handler attached"
	e.Level = logrus.InfoLevel

	out, err := (&prettyFormatter{}).Format(e)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)

	if !strings.Contains(s, "[INFO]") {
		t.Errorf("got %q", s)
	}
	if !strings.Contains(s, "handler attached") {
		t.Errorf("got %q", s)
	}
	if !strings.Contains(s, "accountId=acct1") {
		t.Errorf("got %q", s)
	}
}

func TestNewConfiguresLevel(t *testing.T) {
	l := New("debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("got %v", l.GetLevel())
	}
	if _, ok := l.Formatter.(*prettyFormatter); !ok {
		t.Fatalf("got %T", l.Formatter)
	}
}
