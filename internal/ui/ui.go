package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"daylist/internal/catalog"
	"daylist/internal/config"
	"daylist/internal/datekey"
	"daylist/internal/notify"
	"daylist/internal/tasks"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeNotifyTime
	modeEnableTime
	modeImport
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	bellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	statsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
	activeStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type pollMsg time.Time

type importState struct {
	sources []catalog.Source
	source  int
	items   []string
	cursor  int
	filter  textinput.Model
}

type Model struct {
	svc        *tasks.Service
	poller     *notify.Poller
	cfg        config.Config
	now        func() time.Time
	date       time.Time
	view       tasks.View
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	alert      string
	confirmDel bool
	pendingDel *tasks.Task
	targetID   int64
	imp        *importState
}

func New(svc *tasks.Service, poller *notify.Poller, cfg config.Config, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	ti := textinput.New()
	ti.Placeholder = "Task"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		svc:    svc,
		poller: poller,
		cfg:    cfg,
		now:    now,
		date:   datekey.Today(now()),
		input:  ti,
		mode:   modeList,
		status: fmt.Sprintf("Press '%s' to add, '%s' to import, '%s' to quit.", cfg.Keys.Add, cfg.Keys.Import, cfg.Keys.Quit),
	}
	m.reload()
	return m
}

func Run(svc *tasks.Service, poller *notify.Poller, cfg config.Config) error {
	program := tea.NewProgram(New(svc, poller, cfg, time.Now), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Init runs the first reminder check right away; each check schedules the next.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return pollMsg(m.now())
	}
}

// pollAfter schedules the next check on the next interval boundary of the
// wall clock, so time spent handling a check never pushes later ticks back.
func (m Model) pollAfter(now time.Time) tea.Cmd {
	return tea.Tick(untilNextPoll(now, m.poller.Interval()), func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func untilNextPoll(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = notify.DefaultInterval
	}
	return interval - time.Duration(now.UnixNano()%int64(interval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pollMsg:
		return m.handlePoll(time.Time(msg))
	case tea.KeyMsg:
		m.alert = ""
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
		if m.imp != nil {
			m.imp.filter.Width = msg.Width - 10
		}
	}
	return m, nil
}

func (m Model) handlePoll(at time.Time) (tea.Model, tea.Cmd) {
	fired := m.poller.Check(at)
	if len(fired) > 0 {
		var texts []string
		for _, d := range fired {
			texts = append(texts, fmt.Sprintf("%s (%s)", d.Task.Text, d.Task.NotifyTime))
		}
		m.alert = "Reminder: " + strings.Join(texts, ", ")
		if datekey.SameDay(m.date, at) {
			m.reload()
		}
	}
	return m, m.pollAfter(m.now())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd, modeEdit, modeNotifyTime, modeEnableTime:
		return m.updateInputMode(key, msg)
	case modeImport:
		return m.updateImportMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.view.Tasks))
		return m, nil
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.view.Tasks))
		return m, nil
	case k.PrevDay, "left":
		return m.goTo(datekey.AddDays(m.date, -1)), nil
	case k.NextDay, "right":
		return m.goTo(datekey.AddDays(m.date, 1)), nil
	case k.Today:
		return m.goTo(datekey.Today(m.now())), nil
	case k.Add:
		return m.startInput(modeAdd, "", "Task", "Add: type a task and press Enter")
	case k.Import:
		return m.openImport()
	case k.Clear:
		if !m.view.ShowClear {
			m.status = "No completed tasks"
			return m, nil
		}
		cleared := m.view.Completed
		m.apply(m.svc.ClearCompleted(m.date))
		m.status = fmt.Sprintf("Cleared %d completed", cleared)
		return m, nil
	}

	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch key {
	case k.Toggle:
		m.apply(m.svc.Toggle(m.date, t.ID))
		m.status = "Toggled task"
	case k.Delete:
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Text)
	case k.Edit:
		m.targetID = t.ID
		return m.startInput(modeEdit, t.Text, "Task", "Edit: change the text and press Enter")
	case k.Notify:
		if t.NotifyEnabled {
			m.apply(m.svc.SetNotificationEnabled(m.date, t.ID, false, ""))
			m.status = "Reminder off"
			return m, nil
		}
		if m.svc.NeedsTime(m.date, t.ID) {
			m.targetID = t.ID
			return m.startInput(modeEnableTime, "", "HH:MM", "Reminder time (HH:MM, 24-hour)")
		}
		m.apply(m.svc.SetNotificationEnabled(m.date, t.ID, true, ""))
		m.status = "Reminder on at " + t.NotifyTime
	case k.NotifyTime:
		m.targetID = t.ID
		return m.startInput(modeNotifyTime, t.NotifyTime, "HH:MM", "Reminder time (HH:MM, empty to clear)")
	}
	return m, nil
}

func (m Model) startInput(md mode, value, placeholder, status string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.status = status
	return m, m.input.Focus()
}

func (m Model) updateInputMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.status = "Cancelled"
		return m.endInput(), nil
	case m.cfg.Keys.Confirm, "enter":
		return m.submitInput(m.input.Value())
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) submitInput(value string) (tea.Model, tea.Cmd) {
	var (
		view tasks.View
		err  error
		done string
	)
	switch m.mode {
	case modeAdd:
		view, err = m.svc.Add(m.date, value)
		done = "Added task"
	case modeEdit:
		view, err = m.svc.Edit(m.date, m.targetID, value)
		done = "Saved task"
	case modeNotifyTime:
		view, err = m.svc.SetNotificationTime(m.date, m.targetID, value)
		done = "Reminder time saved"
	case modeEnableTime:
		view, err = m.svc.SetNotificationEnabled(m.date, m.targetID, true, value)
		done = "Reminder on at " + strings.TrimSpace(value)
	}
	if err != nil {
		// Stay in the prompt so the user can fix the input.
		m.status = inputError(err)
		return m, nil
	}

	prevMode := m.mode
	m.view = view
	m = m.endInput()
	m.status = done
	if prevMode == modeAdd {
		m.cursor = clampCursor(len(m.view.Tasks)-1, len(m.view.Tasks))
	} else {
		m.cursor = clampCursor(m.cursor, len(m.view.Tasks))
	}
	return m, nil
}

func (m Model) endInput() Model {
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
	m.targetID = 0
	return m
}

func inputError(err error) string {
	switch {
	case errors.Is(err, tasks.ErrEmptyText):
		return "Task cannot be empty"
	case errors.Is(err, tasks.ErrInvalidTime):
		return "Time must be HH:MM, e.g. 09:30"
	case errors.Is(err, tasks.ErrDuplicate):
		return "Already on this day"
	default:
		return fmt.Sprintf("failed: %v", err)
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		m.apply(m.svc.Delete(m.date, m.pendingDel.ID))
		m.status = "Deleted task"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) openImport() (tea.Model, tea.Cmd) {
	fi := textinput.New()
	fi.Placeholder = "filter"
	fi.CharLimit = 64
	fi.Width = m.input.Width
	m.imp = &importState{
		sources: catalog.ListSources(),
		filter:  fi,
	}
	m.refreshImport()
	m.mode = modeImport
	m.status = "Import: tab switches source, type to filter, enter adds, esc closes"
	return m, m.imp.filter.Focus()
}

func (m *Model) refreshImport() {
	imp := m.imp
	all, err := catalog.Tasks(imp.sources[imp.source].Key)
	if err != nil {
		m.status = fmt.Sprintf("import failed: %v", err)
		all = nil
	}
	imp.items = catalog.Filter(all, imp.filter.Value())
	imp.cursor = clampCursor(imp.cursor, len(imp.items))
}

func (m Model) updateImportMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	imp := m.imp
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.imp = nil
		m.mode = modeList
		m.status = "Import closed"
		return m, nil
	case "tab":
		imp.source = wrapIndex(imp.source+1, len(imp.sources))
		imp.cursor = 0
		m.refreshImport()
		return m, nil
	case "shift+tab":
		imp.source = wrapIndex(imp.source-1, len(imp.sources))
		imp.cursor = 0
		m.refreshImport()
		return m, nil
	case "down", "ctrl+n":
		imp.cursor = clampCursor(imp.cursor+1, len(imp.items))
		return m, nil
	case "up", "ctrl+p":
		imp.cursor = clampCursor(imp.cursor-1, len(imp.items))
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		if len(imp.items) == 0 {
			m.status = "Nothing matches"
			return m, nil
		}
		text := imp.items[imp.cursor]
		view, err := m.svc.Import(m.date, text)
		if err != nil {
			m.status = inputError(err)
			return m, nil
		}
		m.view = view
		m.status = fmt.Sprintf("Imported \"%s\"", text)
		return m, nil
	default:
		var cmd tea.Cmd
		imp.filter, cmd = imp.filter.Update(msg)
		m.refreshImport()
		return m, cmd
	}
}

func (m Model) goTo(date time.Time) Model {
	m.date = datekey.StartOfDay(date)
	m.reload()
	m.cursor = 0
	m.status = ""
	return m
}

func (m *Model) reload() {
	m.view = m.svc.View(m.date)
	m.cursor = clampCursor(m.cursor, len(m.view.Tasks))
}

func (m *Model) apply(view tasks.View, err error) {
	if err != nil {
		m.status = inputError(err)
		return
	}
	m.view = view
	m.cursor = clampCursor(m.cursor, len(m.view.Tasks))
}

func (m Model) selected() (tasks.Task, bool) {
	if len(m.view.Tasks) == 0 {
		return tasks.Task{}, false
	}
	return m.view.Tasks[clampCursor(m.cursor, len(m.view.Tasks))], true
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("daylist"))
	b.WriteString("  ")
	b.WriteString(dateStyle.Render(m.view.Display()))
	if datekey.SameDay(m.date, m.now()) {
		b.WriteString(statsStyle.Render(" (today)"))
	}
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(renderStats(m.view)))
	b.WriteString("\n\n")

	if m.alert != "" {
		b.WriteString(alertStyle.Render(m.alert))
		b.WriteString("\n\n")
	}

	if len(m.view.Tasks) == 0 {
		b.WriteString(fmt.Sprintf("No tasks for this day. Press '%s' to add one.", m.cfg.Keys.Add))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTaskList())
	}

	switch m.mode {
	case modeAdd, modeEdit, modeNotifyTime, modeEnableTime:
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeImport:
		b.WriteString("\n---\n")
		b.WriteString(m.renderImport())
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys, m.view.ShowClear)))

	return b.String()
}

func renderStats(v tasks.View) string {
	if v.Total == 0 {
		return "0 tasks"
	}
	return fmt.Sprintf("%d/%d done", v.Completed, v.Total)
}

func renderHelp(k config.Keymap, showClear bool) string {
	help := fmt.Sprintf("%s/%s move • %s/%s/%s day • %s add • %s toggle • %s edit • %s delete • %s reminder • %s time • %s import",
		k.Up, k.Down, k.PrevDay, k.NextDay, k.Today, k.Add, keyName(k.Toggle), k.Edit, k.Delete, k.Notify, k.NotifyTime, k.Import)
	if showClear {
		help += fmt.Sprintf(" • %s clear completed", k.Clear)
	}
	return help + fmt.Sprintf(" • %s quit", k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	for i, t := range m.view.Tasks {
		cursor := " "
		if m.cursor == i && m.mode != modeImport {
			cursor = ">"
		}

		checkbox := "[ ]"
		text := t.Text
		if t.Completed {
			checkbox = "[x]"
			text = doneStyle.Render(text)
		}

		b.WriteString(fmt.Sprintf("%s %s %s%s\n", cursor, checkbox, text, renderReminder(t)))
	}
	return b.String()
}

func renderReminder(t tasks.Task) string {
	switch {
	case t.Armed():
		return bellStyle.Render("  ⏰ " + t.NotifyTime)
	case t.NotifyTime != "":
		return statsStyle.Render("  (" + t.NotifyTime + " off)")
	default:
		return ""
	}
}

func (m Model) renderImport() string {
	imp := m.imp
	if imp == nil {
		return ""
	}
	var b strings.Builder
	for i, s := range imp.sources {
		label := s.Label
		if i == imp.source {
			label = activeStyle.Render(label)
		}
		b.WriteString(label)
		b.WriteString("   ")
	}
	b.WriteString("\n")
	b.WriteString(imp.filter.View())
	b.WriteString("\n")
	if len(imp.items) == 0 {
		b.WriteString("(no matches)\n")
	}
	for i, it := range imp.items {
		prefix := " "
		if i == imp.cursor {
			prefix = ">"
		}
		if _, exists := findText(m.view.Tasks, it); exists {
			it = doneStyle.Render(it)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", prefix, it))
	}
	return b.String()
}

func findText(list []tasks.Task, text string) (tasks.Task, bool) {
	for _, t := range list {
		if t.Text == text {
			return t, true
		}
	}
	return tasks.Task{}, false
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
