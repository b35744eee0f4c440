package tasks

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"daylist/internal/storage"
)

// countingKV records writes so tests can assert a no-op really skipped the save.
// failGets makes that many upcoming reads fail.
type countingKV struct {
	*storage.Memory
	sets     int
	failSet  bool
	failGets int
}

func (c *countingKV) Get(key string) ([]byte, bool, error) {
	if c.failGets > 0 {
		c.failGets--
		return nil, false, errors.New("database is locked")
	}
	return c.Memory.Get(key)
}

func (c *countingKV) Set(key string, value []byte) error {
	c.sets++
	if c.failSet {
		return errors.New("quota exceeded")
	}
	return c.Memory.Set(key, value)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

var fixedNow = time.Date(2025, time.April, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *countingKV) {
	t.Helper()
	kv := &countingKV{Memory: storage.NewMemory()}
	repo := NewRepository(kv, DefaultKey, quietLogger())
	svc := NewService(repo, quietLogger(), WithClock(func() time.Time { return fixedNow }))
	return svc, kv
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func mustAdd(t *testing.T, svc *Service, date time.Time, text string) Task {
	t.Helper()
	v, err := svc.Add(date, text)
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", text, err)
	}
	return v.Tasks[len(v.Tasks)-1]
}
