package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"daylist/internal/storage"
)

const DefaultKey = "daylist.tasks"

// record is the persisted task shape. Pointer fields distinguish a missing
// field (older documents) from its zero value.
type record struct {
	ID            int64   `json:"id"`
	Text          string  `json:"text"`
	Completed     bool    `json:"completed"`
	NotifyEnabled *bool   `json:"notifyEnabled"`
	NotifyTime    *string `json:"notifyTime"`
}

// migration fills in a field older documents lack. Steps run in order on
// every record on every load.
type migration func(*record)

var migrations = []migration{
	defaultNotifyFields,
}

func defaultNotifyFields(r *record) {
	if r.NotifyEnabled == nil {
		disabled := false
		r.NotifyEnabled = &disabled
	}
	if r.NotifyTime != nil && *r.NotifyTime == "" {
		r.NotifyTime = nil
	}
}

const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {
		"type": "array",
		"items": {
			"type": "object",
			"required": ["id", "text"],
			"properties": {
				"id": {"type": "integer"},
				"text": {"type": "string"},
				"completed": {"type": "boolean"},
				"notifyEnabled": {"type": "boolean"},
				"notifyTime": {"type": ["string", "null"]}
			}
		}
	}
}`

var schema = jsonschema.MustCompileString("daylist-store.schema.json", documentSchema)

// Repository reads and writes the whole task document under a single key.
type Repository struct {
	kv     storage.KV
	key    string
	logger *log.Logger
}

func NewRepository(kv storage.KV, key string, logger *log.Logger) *Repository {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{kv: kv, key: key, logger: logger}
}

// Load never fails: a missing, unreadable or malformed document is an empty store.
func (r *Repository) Load() Store {
	store, err := r.load()
	if err != nil {
		r.logger.Error("read tasks", "key", r.key, "err", err)
		return Store{}
	}
	return store
}

// load reports storage read errors so writers never save over a document they
// could not see. A missing or malformed document is still an empty store.
func (r *Repository) load() (Store, error) {
	data, ok, err := r.kv.Get(r.key)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return Store{}, nil
	}
	store, err := decode(data)
	if err != nil {
		r.logger.Warn("stored tasks are malformed, starting empty", "key", r.key, "err", err)
		return Store{}, nil
	}
	return store, nil
}

func (r *Repository) Save(s Store) error {
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := r.kv.Set(r.key, data); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

func decode(data []byte) (Store, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var raw map[string][]record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	store := make(Store, len(raw))
	for key, records := range raw {
		list := make([]Task, 0, len(records))
		for i := range records {
			rec := records[i]
			for _, m := range migrations {
				m(&rec)
			}
			list = append(list, rec.task())
		}
		store.put(key, list)
	}
	return store, nil
}

func encode(s Store) ([]byte, error) {
	out := make(map[string][]record, len(s))
	for key, list := range s {
		if len(list) == 0 {
			continue
		}
		recs := make([]record, 0, len(list))
		for _, t := range list {
			recs = append(recs, toRecord(t))
		}
		out[key] = recs
	}
	return json.Marshal(out)
}

func (r record) task() Task {
	t := Task{
		ID:        r.ID,
		Text:      r.Text,
		Completed: r.Completed,
	}
	if r.NotifyEnabled != nil {
		t.NotifyEnabled = *r.NotifyEnabled
	}
	if r.NotifyTime != nil {
		t.NotifyTime = *r.NotifyTime
	}
	return t
}

func toRecord(t Task) record {
	enabled := t.NotifyEnabled
	rec := record{
		ID:            t.ID,
		Text:          t.Text,
		Completed:     t.Completed,
		NotifyEnabled: &enabled,
	}
	if t.NotifyTime != "" {
		tm := t.NotifyTime
		rec.NotifyTime = &tm
	}
	return rec
}
