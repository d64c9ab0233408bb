package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
)

var (
	_cfgFile string
	_debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "huskoll-bridge",
	Short: "Local bridge and CLI for Huskoll HVAC devices",
	Long: `huskoll-bridge talks to the Huskoll open API on behalf of one
device, either as a one-shot CLI (status, set, adjust) or as a
long-running local REST/metrics/MQTT bridge (server).`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _debug {
			logrus.SetLevel(logrus.DebugLevel)
		}

		return logging.Configure(viper.GetViper())
	},
}

// Execute runs the top level command processor
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&_cfgFile, "config", "", "config file (default is $HOME/.huskoll-bridge.yaml)")
	rootCmd.PersistentFlags().BoolVar(&_debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("hwid", "", "hardware ID of the Huskoll device")
	rootCmd.PersistentFlags().String("token", "", "API token (request one from Huskoll support)")
	rootCmd.PersistentFlags().String("api-base-url", "", "override the vendor API base URL")
	rootCmd.PersistentFlags().Duration("api-timeout", time.Second*15, "maximum duration of a vendor API call, eg. 1m or 10s")

	errPanic(viper.BindPFlag("huskoll.hwid", rootCmd.PersistentFlags().Lookup("hwid")))
	errPanic(viper.BindPFlag("huskoll.token", rootCmd.PersistentFlags().Lookup("token")))
	errPanic(viper.BindPFlag("huskoll.base-url", rootCmd.PersistentFlags().Lookup("api-base-url")))
	errPanic(viper.BindPFlag("huskoll.api-timeout", rootCmd.PersistentFlags().Lookup("api-timeout")))
}

func initConfig() {
	if _cfgFile != "" {
		viper.SetConfigFile(_cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".huskoll-bridge")
	}

	viper.SetEnvPrefix("HUSKOLL_BRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logging.Logger(nil).Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

func checkRequiredFlags(needFlags ...string) error {
	missingFlags := []string{}

	for _, f := range needFlags {
		if viper.GetString(f) == "" {
			missingFlags = append(missingFlags, f)
		}
	}

	if len(missingFlags) > 0 {
		itemPlural := "item"
		if len(missingFlags) > 1 {
			itemPlural = "items"
		}
		return fmt.Errorf("required config %s `%s` not set", itemPlural, strings.Join(missingFlags, "`, `"))
	}

	return nil
}

// newDevice builds the device handle from the resolved configuration.
func newDevice() *huskoll.Device {
	opts := []huskoll.Option{}

	if u := viper.GetString("huskoll.base-url"); u != "" {
		opts = append(opts, huskoll.WithBaseURL(u))
	}
	if d := viper.GetDuration("huskoll.api-timeout"); d > 0 {
		opts = append(opts, huskoll.WithTimeout(d))
	}

	return huskoll.NewDevice(
		viper.GetString("huskoll.hwid"),
		viper.GetString("huskoll.token"),
		opts...,
	)
}

func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}
