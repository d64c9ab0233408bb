package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
)

var _setCmdOpts struct {
	power           string
	mode            string
	fan             string
	temp            float64
	suppressWarning bool
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Push new operating parameters to the device",
	Long: `Push new operating parameters.  The vendor API requires all four
parameters in every request; any not given here are filled in from a
fresh status fetch.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doSet(cmd); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("huskoll.hwid", "huskoll.token")
	},
}

func init() {
	setCmd.Flags().StringVar(&_setCmdOpts.power, "power", "", "power state (on/off)")
	setCmd.Flags().StringVar(&_setCmdOpts.mode, "mode", "", "operating mode (cool/heat)")
	setCmd.Flags().StringVar(&_setCmdOpts.fan, "fan", "", "fan speed (auto/low/medium/high)")
	setCmd.Flags().Float64Var(&_setCmdOpts.temp, "temp", 0, "setpoint temperature")
	setCmd.Flags().BoolVar(&_setCmdOpts.suppressWarning, "suppress-range-warning", false,
		"do not warn about setpoints outside the documented range")

	rootCmd.AddCommand(setCmd)
}

func doSet(cmd *cobra.Command) error {
	var params huskoll.UpdateParams
	var err error

	if _setCmdOpts.power != "" {
		if params.Power, err = huskoll.ParsePower(_setCmdOpts.power); err != nil {
			return err
		}
	}
	if _setCmdOpts.mode != "" {
		if params.Mode, err = huskoll.ParseMode(_setCmdOpts.mode); err != nil {
			return err
		}
	}
	if _setCmdOpts.fan != "" {
		if params.FanSpeed, err = huskoll.ParseFanSpeed(_setCmdOpts.fan); err != nil {
			return err
		}
	}

	ctx := context.Background()

	// The range advisory applies whenever a setpoint was given, no
	// matter which other flags accompany it.
	if cmd.Flags().Changed("temp") {
		if !_setCmdOpts.suppressWarning {
			huskoll.SetpointRangeAdvisory(ctx, _setCmdOpts.temp)
		}
		params.Setpoint = &_setCmdOpts.temp
	}

	if params.Power == "" && params.Mode == "" && params.FanSpeed == "" && params.Setpoint == nil {
		return fmt.Errorf("nothing to set: give at least one of --power, --mode, --fan, --temp")
	}

	return newDevice().UpdateStatus(ctx, params)
}
