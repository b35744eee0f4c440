package tasks

import (
	"errors"
	"testing"
)

func TestAddKeepsDatesApart(t *testing.T) {
	svc, _ := newTestService(t)
	d1 := day(2025, 4, 14)
	d2 := day(2025, 4, 15)

	mustAdd(t, svc, d1, "Buy milk")
	mustAdd(t, svc, d1, "Call mom")

	if got := svc.View(d2); got.Total != 0 || len(got.Tasks) != 0 {
		t.Fatalf("View(d2) = %+v, want empty", got)
	}
	if got := svc.View(d1); got.Total != 2 {
		t.Errorf("View(d1).Total = %d, want 2", got.Total)
	}
}

func TestAddDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	mustAdd(t, svc, d, "First")
	before := svc.View(d).Total

	v, err := svc.Add(d, "  Buy milk  ")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(v.Tasks) != before+1 {
		t.Fatalf("len = %d, want %d", len(v.Tasks), before+1)
	}
	got := v.Tasks[len(v.Tasks)-1]
	if got.Text != "Buy milk" {
		t.Errorf("Text = %q, want trimmed %q", got.Text, "Buy milk")
	}
	if got.Completed || got.NotifyEnabled || got.NotifyTime != "" {
		t.Errorf("new task = %+v, want zero completion/notify state", got)
	}
}

func TestAddRejectsBlank(t *testing.T) {
	svc, kv := newTestService(t)
	d := day(2025, 4, 14)
	mustAdd(t, svc, d, "keep")
	writes := kv.sets

	for _, text := range []string{"", "  ", "\t\n"} {
		v, err := svc.Add(d, text)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Add(%q) error = %v, want ErrEmptyText", text, err)
		}
		if v.Total != 1 {
			t.Errorf("Add(%q) total = %d, want 1", text, v.Total)
		}
	}
	if kv.sets != writes {
		t.Errorf("blank adds wrote %d times, want 0", kv.sets-writes)
	}
}

func TestIDsUniqueUnderFrozenClock(t *testing.T) {
	svc, _ := newTestService(t)
	seen := map[int64]bool{}
	for i, d := range []int{14, 14, 14, 15, 16} {
		task := mustAdd(t, svc, day(2025, 4, d), "task")
		if seen[task.ID] {
			t.Fatalf("add #%d reused id %d", i, task.ID)
		}
		seen[task.ID] = true
	}
	if !seen[fixedNow.UnixMilli()] {
		t.Errorf("first id should be the clock's millisecond timestamp %d", fixedNow.UnixMilli())
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	svc, kv := newTestService(t)
	d := day(2025, 4, 14)
	task := mustAdd(t, svc, d, "Walk dog")
	if _, err := svc.SetNotificationEnabled(d, task.ID, true, "07:15"); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.View(d).Find(task.ID)
	beforeRaw, _, _ := kv.Get(DefaultKey)

	v, _ := svc.Toggle(d, task.ID)
	if got, _ := v.Find(task.ID); !got.Completed {
		t.Fatalf("after one toggle Completed = false")
	}
	v, _ = svc.Toggle(d, task.ID)
	after, _ := v.Find(task.ID)
	if after != before {
		t.Errorf("after two toggles = %+v, want %+v", after, before)
	}
	afterRaw, _, _ := kv.Get(DefaultKey)
	if string(afterRaw) != string(beforeRaw) {
		t.Errorf("persisted document changed:\n%s\n%s", beforeRaw, afterRaw)
	}
}

func TestEditText(t *testing.T) {
	svc, kv := newTestService(t)
	d := day(2025, 4, 14)
	task := mustAdd(t, svc, d, "Draft")

	v, err := svc.Edit(d, task.ID, " Final ")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if got, _ := v.Find(task.ID); got.Text != "Final" {
		t.Errorf("Text = %q, want Final", got.Text)
	}

	writes := kv.sets
	if _, err := svc.Edit(d, task.ID, "Final"); err != nil {
		t.Fatal(err)
	}
	if kv.sets != writes {
		t.Error("unchanged edit should not write")
	}

	if _, err := svc.Edit(d, task.ID, "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank edit error = %v, want ErrEmptyText", err)
	}
	if got, _ := svc.View(d).Find(task.ID); got.Text != "Final" {
		t.Errorf("blank edit changed text to %q", got.Text)
	}
}

func TestDeletePrunesDate(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	a := mustAdd(t, svc, d, "a")
	b := mustAdd(t, svc, d, "b")

	v, _ := svc.Delete(d, a.ID)
	if v.Total != 1 || v.Tasks[0].ID != b.ID {
		t.Fatalf("after delete = %+v", v.Tasks)
	}
	svc.Delete(d, b.ID)
	for _, k := range svc.Dates() {
		if k == "2025-04-14" {
			t.Errorf("empty date key still present: %v", svc.Dates())
		}
	}
}

func TestClearCompletedKeepsOrder(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	var ids []int64
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		ids = append(ids, mustAdd(t, svc, d, text).ID)
	}
	svc.Toggle(d, ids[1])
	svc.Toggle(d, ids[3])

	if v := svc.View(d); !v.ShowClear || v.Completed != 2 || v.Total != 5 {
		t.Fatalf("stats before clear = %d/%d show=%v", v.Completed, v.Total, v.ShowClear)
	}

	if _, err := svc.ClearCompleted(d); err != nil {
		t.Fatal(err)
	}
	v := svc.View(d)
	var got []string
	for _, task := range v.Tasks {
		got = append(got, task.Text)
	}
	want := []string{"one", "three", "five"}
	if len(got) != len(want) {
		t.Fatalf("after clear = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("after clear = %v, want %v", got, want)
			break
		}
	}
	if v.ShowClear {
		t.Error("ShowClear = true after clearing")
	}
}

func TestClearCompletedRemovesEmptyDate(t *testing.T) {
	svc, kv := newTestService(t)
	d := day(2025, 4, 14)
	other := day(2025, 4, 20)
	task := mustAdd(t, svc, d, "only")
	mustAdd(t, svc, other, "elsewhere")
	svc.Toggle(d, task.ID)

	svc.ClearCompleted(d)

	raw, _, _ := kv.Get(DefaultKey)
	store, err := decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store["2025-04-14"]; ok {
		t.Errorf("date key still present in %s", raw)
	}
	if len(store["2025-04-20"]) != 1 {
		t.Errorf("other date lost: %s", raw)
	}

	writes := kv.sets
	svc.ClearCompleted(other)
	if kv.sets != writes {
		t.Error("clear with nothing completed should not write")
	}
}

func TestNotFoundIsSilent(t *testing.T) {
	svc, kv := newTestService(t)
	d := day(2025, 4, 14)
	mustAdd(t, svc, d, "present")
	empty := day(2025, 5, 1)
	writes := kv.sets

	ops := []struct {
		name string
		run  func() (View, error)
	}{
		{"toggle", func() (View, error) { return svc.Toggle(d, 42) }},
		{"edit", func() (View, error) { return svc.Edit(d, 42, "x") }},
		{"delete", func() (View, error) { return svc.Delete(d, 42) }},
		{"notify", func() (View, error) { return svc.SetNotificationEnabled(d, 42, true, "08:00") }},
		{"notify-time", func() (View, error) { return svc.SetNotificationTime(d, 42, "08:00") }},
		{"toggle empty date", func() (View, error) { return svc.Toggle(empty, 1) }},
		{"clear empty date", func() (View, error) { return svc.ClearCompleted(empty) }},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			if _, err := op.run(); err != nil {
				t.Errorf("error = %v, want nil", err)
			}
		})
	}
	if kv.sets != writes {
		t.Errorf("not-found ops wrote %d times", kv.sets-writes)
	}
}

func TestSetNotificationTimeValidation(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	task := mustAdd(t, svc, d, "Stand-up")
	if _, err := svc.SetNotificationTime(d, task.ID, "08:45"); err != nil {
		t.Fatalf("SetNotificationTime(08:45) failed: %v", err)
	}

	for _, bad := range []string{"9:00", "24:00", "12:60", "0900", "ab:cd", "09:00:00"} {
		if _, err := svc.SetNotificationTime(d, task.ID, bad); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("SetNotificationTime(%q) error = %v, want ErrInvalidTime", bad, err)
		}
	}
	if got, _ := svc.View(d).Find(task.ID); got.NotifyTime != "08:45" {
		t.Errorf("NotifyTime = %q, want unchanged 08:45", got.NotifyTime)
	}

	v, err := svc.SetNotificationTime(d, task.ID, "  ")
	if err != nil {
		t.Fatalf("clearing time failed: %v", err)
	}
	if got, _ := v.Find(task.ID); got.NotifyTime != "" {
		t.Errorf("NotifyTime = %q, want cleared", got.NotifyTime)
	}
}

func TestSetNotificationEnabled(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	task := mustAdd(t, svc, d, "Pills")

	if !svc.NeedsTime(d, task.ID) {
		t.Fatal("NeedsTime = false for task without a time")
	}
	if _, err := svc.SetNotificationEnabled(d, task.ID, true, ""); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("enable without time error = %v, want ErrInvalidTime", err)
	}
	if _, err := svc.SetNotificationEnabled(d, task.ID, true, "8:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("enable with bad time error = %v, want ErrInvalidTime", err)
	}
	if got, _ := svc.View(d).Find(task.ID); got.NotifyEnabled || got.NotifyTime != "" {
		t.Fatalf("aborted enable changed task: %+v", got)
	}

	v, err := svc.SetNotificationEnabled(d, task.ID, true, "20:00")
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if got, _ := v.Find(task.ID); !got.Armed() || got.NotifyTime != "20:00" {
		t.Errorf("after enable = %+v", got)
	}

	v, _ = svc.SetNotificationEnabled(d, task.ID, false, "")
	got, _ := v.Find(task.ID)
	if got.NotifyEnabled || got.NotifyTime != "20:00" {
		t.Errorf("after disable = %+v, want disabled keeping 20:00", got)
	}

	v, err = svc.SetNotificationEnabled(d, task.ID, true, "")
	if err != nil {
		t.Fatalf("re-enable failed: %v", err)
	}
	if got, _ := v.Find(task.ID); !got.NotifyEnabled || got.NotifyTime != "20:00" {
		t.Errorf("after re-enable = %+v, want prior time restored", got)
	}
}

func TestImportDeduplicatesPerDate(t *testing.T) {
	svc, _ := newTestService(t)
	d1 := day(2025, 4, 14)
	d2 := day(2025, 4, 15)

	if _, err := svc.Import(d1, "Read chapter 1"); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	v, err := svc.Import(d1, "Read chapter 1")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second import error = %v, want ErrDuplicate", err)
	}
	if v.Total != 1 {
		t.Errorf("total after duplicate = %d, want 1", v.Total)
	}
	if _, err := svc.Import(d2, "Read chapter 1"); err != nil {
		t.Errorf("import on other date failed: %v", err)
	}
}

func TestSaveFailureKeepsReturnedState(t *testing.T) {
	svc, kv := newTestService(t)
	kv.failSet = true
	d := day(2025, 4, 14)

	v, err := svc.Add(d, "not durable")
	if err != nil {
		t.Fatalf("Add returned %v, want write failure swallowed", err)
	}
	if v.Total != 1 {
		t.Errorf("returned total = %d, want 1", v.Total)
	}
	if got := svc.View(d); got.Total != 0 {
		t.Errorf("reloaded total = %d, want 0 (write never landed)", got.Total)
	}
}

func TestReadFailureAbortsMutation(t *testing.T) {
	svc, kv := newTestService(t)
	d1 := day(2025, 4, 14)
	d2 := day(2025, 4, 15)
	d3 := day(2025, 4, 16)
	first := mustAdd(t, svc, d1, "Buy milk")
	mustAdd(t, svc, d2, "Call mom")
	setsBefore := kv.sets

	kv.failGets = 1
	if _, err := svc.Add(d3, "new"); err == nil {
		t.Fatal("Add after a failed read returned nil error")
	}
	kv.failGets = 1
	if _, err := svc.Toggle(d1, first.ID); err == nil {
		t.Fatal("Toggle after a failed read returned nil error")
	}
	if kv.sets != setsBefore {
		t.Errorf("sets = %d, want %d (no write after a failed read)", kv.sets, setsBefore)
	}

	if got := svc.View(d1); got.Total != 1 || got.Tasks[0].Completed {
		t.Errorf("%s = %+v, want the untouched task", got.Key, got.Tasks)
	}
	if got := svc.View(d2); got.Total != 1 {
		t.Errorf("%s total = %d, want 1", got.Key, got.Total)
	}
	if got := svc.View(d3); got.Total != 0 {
		t.Errorf("%s total = %d, want 0", got.Key, got.Total)
	}
}

func TestDisableIgnoresSuppliedTime(t *testing.T) {
	svc, _ := newTestService(t)
	d := day(2025, 4, 14)
	task := mustAdd(t, svc, d, "Pills")
	if _, err := svc.SetNotificationEnabled(d, task.ID, true, "20:00"); err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	v, err := svc.SetNotificationEnabled(d, task.ID, false, "bogus")
	if err != nil {
		t.Fatalf("disable with a malformed time returned %v", err)
	}
	got, _ := v.Find(task.ID)
	if got.NotifyEnabled || got.NotifyTime != "20:00" {
		t.Errorf("after disable = %+v, want disabled keeping 20:00", got)
	}
}
