package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daylist/internal/catalog"
	"daylist/internal/datekey"
	"daylist/internal/notify"
	"daylist/internal/tasks"
	"daylist/internal/ui"
)

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "daylist",
		Short:         "Per-day to-do lists with daily reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(tuiCmd(g))
	root.AddCommand(listCmd(g))
	root.AddCommand(addCmd(g))
	root.AddCommand(doneCmd(g))
	root.AddCommand(editCmd(g))
	root.AddCommand(rmCmd(g))
	root.AddCommand(clearCmd(g))
	root.AddCommand(notifyCmd(g))
	root.AddCommand(notifyTimeCmd(g))
	root.AddCommand(importCmd(g))
	root.AddCommand(sourcesCmd())
	root.AddCommand(watchCmd(g))
	return root
}

func runTUI(g *globalFlags) error {
	a, err := openApp(g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := ui.Run(a.svc, a.poller(), a.cfg); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func tuiCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task list (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}
}

// withDate wires the shared --date flag and opens the app for a command.
func withDate(g *globalFlags, cmd *cobra.Command, run func(a *app, date time.Time, args []string) error) *cobra.Command {
	var date string
	cmd.Flags().StringVarP(&date, "date", "d", "today", "day to act on (YYYY-MM-DD, today, tomorrow, yesterday)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		d, err := parseDate(date, time.Now())
		if err != nil {
			return err
		}
		a, err := openApp(g, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(a, d, args)
	}
	return cmd
}

func listCmd(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a day's tasks",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every day that has tasks")
	return withDate(g, cmd, func(a *app, date time.Time, _ []string) error {
		out := cmd.OutOrStdout()
		if !all {
			printView(out, a.svc.View(date))
			return nil
		}
		keys := a.svc.Dates()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No tasks.")
		}
		for i, key := range keys {
			d, err := datekey.Parse(key, date.Location())
			if err != nil {
				continue
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			printView(out, a.svc.View(d))
		}
		return nil
	})
}

func addCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
	}
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		v, err := a.svc.Add(date, strings.Join(args, " "))
		if err != nil {
			return err
		}
		t := v.Tasks[len(v.Tasks)-1]
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d on %s: %s\n", t.ID, v.Key, t.Text)
		return nil
	})
}

func doneCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
	}
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		v, err := a.svc.Toggle(date, id)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), v, id, func(t tasks.Task) string {
			return fmt.Sprintf("%s: %s", humanDone(t.Completed), t.Text)
		})
	})
}

func editCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID TEXT...",
		Short: "Change a task's text",
		Args:  cobra.MinimumNArgs(2),
	}
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		v, err := a.svc.Edit(date, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), v, id, func(t tasks.Task) string {
			return "Saved: " + t.Text
		})
	})
}

func rmCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
	}
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		before := a.svc.View(date)
		t, ok := before.Find(id)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No task %d on %s\n", id, before.Key)
			return nil
		}
		if _, err := a.svc.Delete(date, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", t.Text)
		return nil
	})
}

func clearCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove a day's completed tasks",
		Args:  cobra.NoArgs,
	}
	return withDate(g, cmd, func(a *app, date time.Time, _ []string) error {
		before := a.svc.View(date)
		v, err := a.svc.ClearCompleted(date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed on %s\n", before.Total-v.Total, v.Key)
		return nil
	})
}

func notifyCmd(g *globalFlags) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:       "notify ID on|off",
		Short:     "Turn a task's daily reminder on or off",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
	}
	cmd.Flags().StringVar(&at, "at", "", "reminder time HH:MM (required when the task has none)")
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var enabled bool
		switch strings.ToLower(args[1]) {
		case "on":
			enabled = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[1])
		}
		v, err := a.svc.SetNotificationEnabled(date, id, enabled, at)
		if errors.Is(err, tasks.ErrInvalidTime) && at == "" {
			return fmt.Errorf("%w: pass --at HH:MM", err)
		}
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), v, id, func(t tasks.Task) string {
			if t.NotifyEnabled {
				return fmt.Sprintf("Reminder on at %s: %s", t.NotifyTime, t.Text)
			}
			return "Reminder off: " + t.Text
		})
	})
}

func notifyTimeCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify-time ID [HH:MM]",
		Short: "Set or clear a task's reminder time",
		Args:  cobra.RangeArgs(1, 2),
	}
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		at := ""
		if len(args) == 2 {
			at = args[1]
		}
		v, err := a.svc.SetNotificationTime(date, id, at)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), v, id, func(t tasks.Task) string {
			if t.NotifyTime == "" {
				return "Reminder time cleared: " + t.Text
			}
			return fmt.Sprintf("Reminder time %s: %s", t.NotifyTime, t.Text)
		})
	})
}

func importCmd(g *globalFlags) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "import SOURCE",
		Short: "Add tasks from a built-in list (see: daylist sources)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only import items containing this text")
	return withDate(g, cmd, func(a *app, date time.Time, args []string) error {
		items, err := catalog.Tasks(args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		out := cmd.OutOrStdout()
		added, skipped := 0, 0
		for _, text := range catalog.Filter(items, filter) {
			_, err := a.svc.Import(date, text)
			switch {
			case errors.Is(err, tasks.ErrDuplicate):
				skipped++
			case err != nil:
				return err
			default:
				added++
				fmt.Fprintf(out, "+ %s\n", text)
			}
		}
		src, _ := catalog.Lookup(args[0])
		fmt.Fprintf(out, "Imported %d from %s, skipped %d already on %s\n", added, src.Label, skipped, datekey.ToKey(date))
		return nil
	})
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the built-in import sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range catalog.ListSources() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", s.Key, s.Label)
			}
			return nil
		},
	}
}

func watchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print today's reminders as they come due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			p := a.poller(notify.OnDue(func(d notify.Due) {
				fmt.Fprintf(out, "\a[%s] Reminder: %s\n", d.Task.NotifyTime, d.Task.Text)
			}))
			a.logger.Info("watching reminders", "interval", p.Interval())
			p.Run(ctx)
			return nil
		},
	}
}

func parseID(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", v)
	}
	return id, nil
}

// report prints line(t) for the task, or a not-found note.
func report(w io.Writer, v tasks.View, id int64, line func(tasks.Task) string) error {
	t, ok := v.Find(id)
	if !ok {
		fmt.Fprintf(w, "No task %d on %s\n", id, v.Key)
		return nil
	}
	fmt.Fprintln(w, line(t))
	return nil
}

func printView(w io.Writer, v tasks.View) {
	fmt.Fprintf(w, "%s (%s)  %d/%d done\n", v.Display(), v.Key, v.Completed, v.Total)
	if v.Total == 0 {
		fmt.Fprintln(w, "  no tasks")
		return
	}
	for _, t := range v.Tasks {
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		reminder := ""
		switch {
		case t.Armed():
			reminder = "  @" + t.NotifyTime
		case t.NotifyTime != "":
			reminder = "  (" + t.NotifyTime + " off)"
		}
		fmt.Fprintf(w, "  %s %d  %s%s\n", check, t.ID, t.Text, reminder)
	}
}

func humanDone(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
