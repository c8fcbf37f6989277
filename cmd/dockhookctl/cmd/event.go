package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// eventCmd represents the event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Trigger events",
}

var eventTriggerCmd = &cobra.Command{
	Use:   "trigger <event> <payload-json|@file>",
	Short: "Trigger an event and fan it out to matching subscriptions",
	Long: `Trigger an event with a JSON payload. The payload may be given inline
or as @path/to/file.json. Delivery is asynchronous; the command reports how
many delivery tasks were enqueued.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayloadArg(args[1])
		if err != nil {
			return err
		}

		var res struct {
			Enqueued int `json:"enqueued"`
		}
		body := map[string]any{"event": args[0], "payload": payload}
		if err := apiRequest("POST", "/v1/events", body, &res); err != nil {
			return err
		}
		printOutput(res, func() {
			fmt.Printf("Enqueued %d delivery task(s) for event %q\n", res.Enqueued, args[0])
		})
		return nil
	},
}

func init() {
	eventCmd.AddCommand(eventTriggerCmd)
	rootCmd.AddCommand(eventCmd)
}
