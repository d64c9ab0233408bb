package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var _adjustCmdOpts struct {
	by           float64
	forceRefresh bool
}

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Change the setpoint relative to the current one",

	RunE: func(cmd *cobra.Command, args []string) error {
		device := newDevice()
		return device.ChangeTemperature(context.Background(),
			_adjustCmdOpts.by, _adjustCmdOpts.forceRefresh)
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("huskoll.hwid", "huskoll.token")
	},
}

func init() {
	adjustCmd.Flags().Float64Var(&_adjustCmdOpts.by, "by", 1, "degrees to change the setpoint by (negative to decrease)")
	adjustCmd.Flags().BoolVar(&_adjustCmdOpts.forceRefresh, "force-refresh", false,
		"re-fetch the status before computing the new setpoint")

	rootCmd.AddCommand(adjustCmd)
}
