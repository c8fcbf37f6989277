package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pingCmd checks connectivity with the admin API
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity with the dockhook service",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Message string `json:"message"`
		}
		if err := apiRequest("GET", "/v1/ping", nil, &res); err != nil {
			return err
		}
		printOutput(res, func() { fmt.Println(res.Message) })
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
