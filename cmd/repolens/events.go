package main

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/events"
	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per event")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow index events published on NATS",
	Long: `Print index events as other repolens processes publish them. Requires
events.nats_url (REPOLENS_EVENTS_NATS_URL).

Examples:
  REPOLENS_EVENTS_NATS_URL=nats://localhost:4222 repolens events`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func runEvents(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), needs{})
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Events.NATSURL == "" {
		return errors.New("events.nats_url is not configured")
	}
	nc, err := nats.Connect(a.cfg.Events.NATSURL, nats.Name("repolens-events"))
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer nc.Close()

	out := cmd.OutOrStdout()
	sub, err := events.Subscribe(nc, a.cfg.Events.SubjectPrefix, func(ev events.IndexEvent) {
		if jsonOutput {
			_ = outputJSON(out, ev)
			return
		}
		fmt.Fprintln(out, eventLine(ev))
	})
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	fmt.Fprintln(out, render.Info("following %s.indexed.*", a.cfg.Events.SubjectPrefix))
	<-cmd.Context().Done()
	return nil
}

func eventLine(ev events.IndexEvent) string {
	at := ev.At.Local().Format("15:04:05")
	if ev.Error != "" {
		return render.Error("%s %s: %s", at, ev.Repo, ev.Error)
	}
	line := fmt.Sprintf("%s %s: indexed %d files, %d errors (%s, %dms)", at, ev.Repo, ev.Documents, ev.Errors, ev.State, ev.DurationMS)
	if ev.Errors > 0 {
		return render.Warning("%s", line)
	}
	return render.Success("%s", line)
}
