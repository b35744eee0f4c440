// Package catalog holds the fixed task lists that can be imported into a day.
package catalog

import (
	"errors"
	"strings"
)

var ErrUnknownSource = errors.New("unknown import source")

type Source struct {
	Key   string
	Label string
}

var sources = []Source{
	{Key: "study-plan", Label: "Study plan"},
	{Key: "home-routine", Label: "Home routine"},
}

var lists = map[string][]string{
	"study-plan": {
		"Review lecture notes",
		"Read chapter 3",
		"Summarize chapter 3 in one page",
		"Solve practice problems 1-10",
		"Make flashcards for key terms",
		"Watch recorded seminar",
		"Email study group about Friday",
		"Draft essay outline",
		"Proofread essay draft",
		"Submit weekly assignment",
	},
	"home-routine": {
		"Make the bed",
		"Water the plants",
		"Take out the trash",
		"Run the dishwasher",
		"Do a load of laundry",
		"Wipe kitchen counters",
		"Vacuum the living room",
		"Plan tomorrow's meals",
		"Pay utility bills",
		"Check the mailbox",
	},
}

func ListSources() []Source {
	return append([]Source(nil), sources...)
}

func Tasks(key string) ([]string, error) {
	items, ok := lists[key]
	if !ok {
		return nil, ErrUnknownSource
	}
	return append([]string(nil), items...), nil
}

// Filter keeps the items containing query, ignoring case. A blank query keeps everything.
func Filter(items []string, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]string(nil), items...)
	}
	var out []string
	for _, it := range items {
		if strings.Contains(strings.ToLower(it), query) {
			out = append(out, it)
		}
	}
	return out
}

// Lookup returns the source registered under key.
func Lookup(key string) (Source, bool) {
	for _, s := range sources {
		if s.Key == key {
			return s, true
		}
	}
	return Source{}, false
}
