package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"daylist/internal/storage"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "backend = \"file\"\ndb_path = \"data\"\nlog_level = \"error\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

var addedID = regexp.MustCompile(`Added (\d+) on`)

func TestCommandsEndToEnd(t *testing.T) {
	cfg := writeConfig(t)
	const day = "2025-04-14"

	out, err := run(t, cfg, "add", "--date", day, "Buy", "milk")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	m := addedID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("add output = %q", out)
	}
	id := m[1]

	if _, err := run(t, cfg, "add", "--date", day, "Call mom"); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	out, err = run(t, cfg, "done", "--date", day, id)
	if err != nil || !strings.Contains(out, "done: Buy milk") {
		t.Fatalf("done = %q, %v", out, err)
	}

	out, err = run(t, cfg, "notify", "--date", day, id, "on")
	if err == nil {
		t.Fatalf("notify on without a time should fail, got %q", out)
	}
	out, err = run(t, cfg, "notify", "--date", day, "--at", "07:30", id, "on")
	if err != nil || !strings.Contains(out, "Reminder on at 07:30") {
		t.Fatalf("notify = %q, %v", out, err)
	}

	out, err = run(t, cfg, "list", "--date", day)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"April 14, 2025", "1/2 done", "[x] " + id, "Buy milk  @07:30", "[ ]", "Call mom"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "list", "--date", "2025-04-15")
	if err != nil || !strings.Contains(out, "no tasks") {
		t.Errorf("other day list = %q, %v", out, err)
	}

	out, err = run(t, cfg, "clear", "--date", day)
	if err != nil || !strings.Contains(out, "Cleared 1 completed") {
		t.Errorf("clear = %q, %v", out, err)
	}
}

func TestImportCommand(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "import", "--date", "2025-04-14", "--filter", "chapter", "study-plan")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 2 from Study plan, skipped 0") {
		t.Errorf("first import = %q", out)
	}
	out, err = run(t, cfg, "import", "--date", "2025-04-14", "--filter", "chapter", "study-plan")
	if err != nil || !strings.Contains(out, "Imported 0 from Study plan, skipped 2") {
		t.Errorf("second import = %q, %v", out, err)
	}
	if _, err := run(t, cfg, "import", "cookbook"); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestValidationErrors(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, cfg, "add", "   "); err == nil {
		t.Error("blank add should fail")
	}
	if _, err := run(t, cfg, "done", "abc"); err == nil {
		t.Error("non-numeric id should fail")
	}
	if _, err := run(t, cfg, "notify-time", "1", "9:00"); err == nil {
		t.Error("malformed time should fail")
	}
	if _, err := run(t, cfg, "list", "--date", "14/04/2025"); err == nil {
		t.Error("malformed date should fail")
	}
	out, err := run(t, cfg, "done", "12345")
	if err != nil || !strings.Contains(out, "No task 12345") {
		t.Errorf("missing id = %q, %v", out, err)
	}
}

func TestSourcesCommand(t *testing.T) {
	out, err := run(t, writeConfig(t), "sources")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "study-plan") || !strings.Contains(out, "home-routine") {
		t.Errorf("sources = %q", out)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2025, time.March, 1, 22, 0, 0, 0, time.UTC)
	tests := map[string]string{
		"":           "2025-03-01",
		"today":      "2025-03-01",
		"Tomorrow":   "2025-03-02",
		"yesterday":  "2025-02-28",
		"2024-02-29": "2024-02-29",
	}
	for in, want := range tests {
		got, err := parseDate(in, now)
		if err != nil {
			t.Errorf("parseDate(%q) failed: %v", in, err)
			continue
		}
		if key := got.Format("2006-01-02"); key != want {
			t.Errorf("parseDate(%q) = %s, want %s", in, key, want)
		}
	}
}

func TestLogLastWrite(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "daylist.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})

	logLastWrite(logger, db, "daylist.tasks")
	if logs.Len() != 0 {
		t.Errorf("logged before any write: %q", logs.String())
	}

	if err := db.Set("daylist.tasks", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	logLastWrite(logger, db, "daylist.tasks")
	if !strings.Contains(logs.String(), "tasks last written") {
		t.Errorf("logs = %q, want last write time", logs.String())
	}

	logs.Reset()
	logLastWrite(logger, storage.NewMemory(), "daylist.tasks")
	if logs.Len() != 0 {
		t.Errorf("memory backend logged %q", logs.String())
	}
}
