package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/eventbus"
)

// tailedEvents is the set of channels the events command follows when no
// filter is given.
var tailedEvents = []eventbus.Event{
	eventbus.EventJobProgress,
	eventbus.EventJobFinished,
	eventbus.EventMountState,
	eventbus.EventRemoteChanged,
	eventbus.EventSettingsSaved,
	eventbus.EventNotice,
	eventbus.EventMessage,
	eventbus.EventStreamState,
}

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "events",
		Short:         "Follow live backend events",
		Long:          "Stream job progress, mount changes and notices as they happen.\nPress Ctrl+C to stop.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          tailEvents,
	}
	cmd.Flags().String("event", "", "Only show the named event (e.g. job.progress)")
	return cmd
}

func tailEvents(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	filter, _ := cmd.Flags().GetString("event")
	events := tailedEvents
	if filter != "" {
		events = []eventbus.Event{eventbus.Event(filter)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	merged := make(chan eventbus.Envelope, 64)
	for _, event := range events {
		sub := app.dispatcher.Listen(event)
		go func(sub *eventbus.Subscription) {
			for env := range sub.C() {
				select {
				case merged <- env:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}

	if !out.jsonMode {
		fmt.Println("Listening for events (Ctrl+C to stop)...")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-merged:
			printEvent(out, env)
		}
	}
}

func printEvent(out *OutputFormatter, env eventbus.Envelope) {
	if out.jsonMode {
		line, err := json.Marshal(map[string]interface{}{
			"event":     env.Event,
			"timestamp": env.Timestamp,
			"source":    env.Source,
			"payload":   env.Payload,
		})
		if err == nil {
			fmt.Println(string(line))
		}
		return
	}

	payload := string(env.Payload)
	if payload == "" {
		payload = "{}"
	}
	fmt.Printf("%s %-16s %s\n", env.Timestamp.Format(time.TimeOnly), env.Event, payload)
}
