package tasks

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"daylist/internal/datekey"
)

// Service applies mutations to one day's list. Every call re-reads the whole
// store, changes at most one date, and writes the whole store back.
type Service struct {
	repo   *Repository
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo *Repository, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// change edits a date's list. It reports whether anything changed; an error
// aborts the mutation before anything is written.
type change func(store Store, list []Task) ([]Task, bool, error)

func (s *Service) mutate(date time.Time, op string, fn change) (View, error) {
	key := datekey.ToKey(date)
	store, err := s.repo.load()
	if err != nil {
		s.logger.Error("load tasks", "op", op, "date", key, "err", err)
		return newView(date, nil), err
	}
	list := append([]Task(nil), store[key]...)

	next, changed, err := fn(store, list)
	if err != nil {
		return newView(date, store[key]), err
	}
	if !changed {
		return newView(date, store[key]), nil
	}

	store.put(key, next)
	if err := s.repo.Save(store); err != nil {
		// Durability is best effort; the caller still sees the new state.
		s.logger.Error("save tasks", "op", op, "date", key, "err", err)
	} else {
		s.logger.Debug("saved tasks", "op", op, "date", key, "count", len(next))
	}
	return newView(date, store[key]), nil
}

func (s *Service) View(date time.Time) View {
	store := s.repo.Load()
	return newView(date, store[datekey.ToKey(date)])
}

// Dates lists every date key that has tasks, oldest first.
func (s *Service) Dates() []string {
	return s.repo.Load().Keys()
}

func (s *Service) Add(date time.Time, text string) (View, error) {
	text = normalizeText(text)
	if text == "" {
		return s.View(date), ErrEmptyText
	}
	return s.mutate(date, "add", func(store Store, list []Task) ([]Task, bool, error) {
		return append(list, Task{ID: store.nextID(s.now()), Text: text}), true, nil
	})
}

// Import adds text like Add but refuses an exact duplicate on the same date.
func (s *Service) Import(date time.Time, text string) (View, error) {
	text = normalizeText(text)
	if text == "" {
		return s.View(date), ErrEmptyText
	}
	return s.mutate(date, "import", func(store Store, list []Task) ([]Task, bool, error) {
		for _, t := range list {
			if t.Text == text {
				return list, false, ErrDuplicate
			}
		}
		return append(list, Task{ID: store.nextID(s.now()), Text: text}), true, nil
	})
}

func (s *Service) Toggle(date time.Time, id int64) (View, error) {
	return s.mutate(date, "toggle", func(_ Store, list []Task) ([]Task, bool, error) {
		i := indexOf(list, id)
		if i < 0 {
			return list, false, nil
		}
		list[i].Completed = !list[i].Completed
		return list, true, nil
	})
}

func (s *Service) Edit(date time.Time, id int64, text string) (View, error) {
	text = normalizeText(text)
	if text == "" {
		return s.View(date), ErrEmptyText
	}
	return s.mutate(date, "edit", func(_ Store, list []Task) ([]Task, bool, error) {
		i := indexOf(list, id)
		if i < 0 || list[i].Text == text {
			return list, false, nil
		}
		list[i].Text = text
		return list, true, nil
	})
}

// Delete removes a task. Confirming the intent is up to the caller.
func (s *Service) Delete(date time.Time, id int64) (View, error) {
	return s.mutate(date, "delete", func(_ Store, list []Task) ([]Task, bool, error) {
		i := indexOf(list, id)
		if i < 0 {
			return list, false, nil
		}
		return append(list[:i], list[i+1:]...), true, nil
	})
}

func (s *Service) ClearCompleted(date time.Time) (View, error) {
	return s.mutate(date, "clear", func(_ Store, list []Task) ([]Task, bool, error) {
		kept := list[:0]
		for _, t := range list {
			if !t.Completed {
				kept = append(kept, t)
			}
		}
		return kept, len(kept) != len(list), nil
	})
}

// NeedsTime reports whether enabling the task's reminder requires a time.
func (s *Service) NeedsTime(date time.Time, id int64) bool {
	t, ok := s.View(date).Find(id)
	return ok && t.NotifyTime == ""
}

// SetNotificationEnabled turns a reminder on or off. Enabling a task that has
// no time requires a valid HH:MM in at; a valid at always replaces the prior
// time. Disabling ignores at and keeps the time so re-enabling restores it.
func (s *Service) SetNotificationEnabled(date time.Time, id int64, enabled bool, at string) (View, error) {
	at = strings.TrimSpace(at)
	if !enabled {
		at = ""
	}
	if at != "" && !ValidTime(at) {
		return s.View(date), ErrInvalidTime
	}
	return s.mutate(date, "notify", func(_ Store, list []Task) ([]Task, bool, error) {
		i := indexOf(list, id)
		if i < 0 {
			return list, false, nil
		}
		t := &list[i]
		if !enabled {
			if !t.NotifyEnabled {
				return list, false, nil
			}
			t.NotifyEnabled = false
			return list, true, nil
		}
		if at == "" && t.NotifyTime == "" {
			return list, false, ErrInvalidTime
		}
		if at != "" {
			t.NotifyTime = at
		}
		t.NotifyEnabled = true
		return list, true, nil
	})
}

// SetNotificationTime sets the reminder time. An empty value clears it.
func (s *Service) SetNotificationTime(date time.Time, id int64, at string) (View, error) {
	at = strings.TrimSpace(at)
	if at != "" && !ValidTime(at) {
		return s.View(date), ErrInvalidTime
	}
	return s.mutate(date, "notify-time", func(_ Store, list []Task) ([]Task, bool, error) {
		i := indexOf(list, id)
		if i < 0 || list[i].NotifyTime == at {
			return list, false, nil
		}
		list[i].NotifyTime = at
		return list, true, nil
	})
}
