// Package tasks owns the date-partitioned task document: loading and
// migrating it from storage, mutating one day's list at a time, and
// projecting a day into the View renderers consume.
package tasks

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"daylist/internal/datekey"
)

var (
	ErrEmptyText   = errors.New("task text cannot be empty")
	ErrInvalidTime = errors.New("time must be HH:MM in 24-hour form")
	ErrDuplicate   = errors.New("task already exists on this date")
)

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Task struct {
	ID            int64
	Text          string
	Completed     bool
	NotifyEnabled bool
	// NotifyTime is HH:MM, or empty when no reminder time was ever set.
	NotifyTime string
}

// Armed reports whether the task is waiting for its reminder minute.
func (t Task) Armed() bool {
	return t.NotifyEnabled && t.NotifyTime != ""
}

// Store maps a date key to that day's tasks in display order.
type Store map[string][]Task

// put replaces the list for key, dropping the key when the list is empty.
func (s Store) put(key string, list []Task) {
	if len(list) == 0 {
		delete(s, key)
		return
	}
	s[key] = list
}

func (s Store) maxID() int64 {
	var highest int64
	for _, list := range s {
		for _, t := range list {
			if t.ID > highest {
				highest = t.ID
			}
		}
	}
	return highest
}

// nextID stays time-based but never collides with an id already in the store.
func (s Store) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if highest := s.maxID(); id <= highest {
		id = highest + 1
	}
	return id
}

// Keys returns the date keys in calendar order.
func (s Store) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ValidTime(v string) bool {
	return timePattern.MatchString(v)
}

func normalizeText(v string) string {
	return strings.TrimSpace(v)
}

func indexOf(list []Task, id int64) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// View is one day's tasks plus the state derived from them.
type View struct {
	Date      time.Time
	Key       string
	Tasks     []Task
	Completed int
	Total     int
	ShowClear bool
}

func newView(date time.Time, list []Task) View {
	v := View{
		Date:  date,
		Key:   datekey.ToKey(date),
		Tasks: append([]Task(nil), list...),
		Total: len(list),
	}
	for _, t := range list {
		if t.Completed {
			v.Completed++
		}
	}
	v.ShowClear = v.Completed > 0
	return v
}

func (v View) Display() string {
	return datekey.ToDisplay(v.Date)
}

func (v View) Find(id int64) (Task, bool) {
	if i := indexOf(v.Tasks, id); i >= 0 {
		return v.Tasks[i], true
	}
	return Task{}, false
}
