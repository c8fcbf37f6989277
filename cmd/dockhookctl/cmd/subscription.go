package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type subscriptionView struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	subURL     string
	subEvents  []string
	subSecret  string
	subEnabled bool
)

// subscriptionCmd represents the subscription command
var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Manage webhook subscriptions",
}

var subscriptionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new webhook subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"url":     subURL,
			"events":  subEvents,
			"enabled": subEnabled,
		}
		if subSecret != "" {
			body["secret"] = subSecret
		}
		var sub subscriptionView
		if err := apiRequest("POST", "/v1/subscriptions", body, &sub); err != nil {
			return err
		}
		printOutput(sub, func() {
			fmt.Printf("Registered subscription %s\n", sub.ID)
			printSubscription(sub)
		})
		return nil
	},
}

var subscriptionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var subs []subscriptionView
		if err := apiRequest("GET", "/v1/subscriptions", nil, &subs); err != nil {
			return err
		}
		printOutput(subs, func() {
			if len(subs) == 0 {
				fmt.Println("No subscriptions registered.")
				return
			}
			for _, sub := range subs {
				printSubscription(sub)
				fmt.Println()
			}
		})
		return nil
	},
}

var subscriptionGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sub subscriptionView
		if err := apiRequest("GET", "/v1/subscriptions/"+args[0], nil, &sub); err != nil {
			return err
		}
		printOutput(sub, func() { printSubscription(sub) })
		return nil
	},
}

var subscriptionRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a subscription",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Deleted bool `json:"deleted"`
		}
		if err := apiRequest("DELETE", "/v1/subscriptions/"+args[0], nil, &res); err != nil {
			return err
		}
		printOutput(res, func() {
			if res.Deleted {
				fmt.Println("Deleted.")
			} else {
				fmt.Println("Not found.")
			}
		})
		return nil
	},
}

var subscriptionEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRun(true),
}

var subscriptionDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRun(false),
}

func setEnabledRun(enabled bool) func(cmd *cobra.Command, args []string) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	return func(cmd *cobra.Command, args []string) error {
		var sub subscriptionView
		if err := apiRequest("POST", "/v1/subscriptions/"+args[0]+"/"+action, nil, &sub); err != nil {
			return err
		}
		printOutput(sub, func() { printSubscription(sub) })
		return nil
	}
}

func printSubscription(sub subscriptionView) {
	state := "disabled"
	if sub.Enabled {
		state = "enabled"
	}
	fmt.Printf("  ID:      %s\n", sub.ID)
	fmt.Printf("  URL:     %s\n", sub.URL)
	fmt.Printf("  Events:  %s\n", strings.Join(sub.Events, ", "))
	fmt.Printf("  State:   %s\n", state)
	fmt.Printf("  Created: %s\n", sub.CreatedAt.Format(time.RFC3339))
}

func init() {
	subscriptionAddCmd.Flags().StringVar(&subURL, "url", "", "webhook destination URL (required)")
	subscriptionAddCmd.Flags().StringSliceVar(&subEvents, "event", nil, "event name to subscribe to (repeatable, required)")
	subscriptionAddCmd.Flags().StringVar(&subSecret, "secret", "", "signing secret; omit to deliver unsigned")
	subscriptionAddCmd.Flags().BoolVar(&subEnabled, "enabled", true, "register the subscription enabled")
	subscriptionAddCmd.MarkFlagRequired("url")
	subscriptionAddCmd.MarkFlagRequired("event")

	subscriptionCmd.AddCommand(subscriptionAddCmd)
	subscriptionCmd.AddCommand(subscriptionListCmd)
	subscriptionCmd.AddCommand(subscriptionGetCmd)
	subscriptionCmd.AddCommand(subscriptionRmCmd)
	subscriptionCmd.AddCommand(subscriptionEnableCmd)
	subscriptionCmd.AddCommand(subscriptionDisableCmd)
	rootCmd.AddCommand(subscriptionCmd)
}
