package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	_statusAsJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the current device status",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doStatus(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("huskoll.hwid", "huskoll.token")
	},
}

func init() {
	statusCmd.Flags().BoolVar(&_statusAsJSON, "json", false, "Return status as JSON")
	errPanic(viper.GetViper().BindPFlag("json", statusCmd.Flags().Lookup("json")))

	rootCmd.AddCommand(statusCmd)
}

type statusResult struct {
	State              string          `json:"state"`
	Power              string          `json:"power"`
	Mode               string          `json:"mode"`
	Setpoint           float64         `json:"setpoint"`
	FanSpeed           string          `json:"fan_speed"`
	AmbientTemperature float64         `json:"ambient_temperature"`
	LastAlarm          strfmt.DateTime `json:"last_alarm"`
	HardwareGeneration string          `json:"hardware_generation"`
}

func doStatus() error {
	device := newDevice()

	status, err := device.GetStatus(context.Background())
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		result := statusResult{
			State:              status.State,
			Power:              string(status.Power),
			Mode:               string(status.Mode),
			Setpoint:           status.Setpoint,
			FanSpeed:           string(status.FanSpeed),
			AmbientTemperature: status.AmbientTemperature,
			LastAlarm:          strfmt.DateTime(status.LastAlarm),
			HardwareGeneration: status.HardwareGeneration,
		}

		b, err := json.MarshalIndent(result, "", "    ")
		if err != nil {
			return err
		}

		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("state:        %s\n", status.State)
	fmt.Printf("power:        %s\n", status.Power)
	fmt.Printf("mode:         %s\n", status.Mode)
	fmt.Printf("setpoint:     %g\n", status.Setpoint)
	fmt.Printf("fan speed:    %s\n", status.FanSpeed)
	fmt.Printf("temperature:  %g\n", status.AmbientTemperature)
	fmt.Printf("last alarm:   %s\n", status.LastAlarm)
	fmt.Printf("hw gen:       %s\n", status.HardwareGeneration)

	return nil
}
