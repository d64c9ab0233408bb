package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/announce"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/exporter"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/handlers"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
	"github.com/jake-scott/huskoll-bridge/internal/pkg/logging"
	"github.com/jake-scott/huskoll-bridge/pkg/middlewares"
)

var _serverCmdOpts struct {
	port            uint16
	tlsCertPath     string
	tlsKeyPath      string
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	logRequests     bool

	mqttEnabled         bool
	mqttBrokerURL       string
	mqttBaseTopic       string
	mqttPublishInterval time.Duration
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the local bridge web server",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("huskoll.hwid", "huskoll.token")
	},
}

func init() {
	serverCmd.Flags().Uint16Var(&_serverCmdOpts.port, "port", 8436, "HTTP port number")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsCertPath, "tls-cert", "", "TLS certificate file (serve plain HTTP if unset)")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsKeyPath, "tls-key", "", "TLS key file")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log requests and responses (only in debug mode)")

	serverCmd.Flags().BoolVar(&_serverCmdOpts.mqttEnabled, "mqtt", false, "announce the device status over MQTT")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttBrokerURL, "mqtt-broker", "", "MQTT broker URL, eg. tcp://localhost:1883")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttBaseTopic, "mqtt-base-topic", "", "base MQTT topic (default huskoll/<hwid>)")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.mqttPublishInterval, "mqtt-publish-interval", time.Second*30, "interval between MQTT status publishes")

	errPanic(viper.GetViper().BindPFlag("http.port", serverCmd.Flags().Lookup("port")))
	errPanic(viper.GetViper().BindPFlag("http.cert", serverCmd.Flags().Lookup("tls-cert")))
	errPanic(viper.GetViper().BindPFlag("http.key", serverCmd.Flags().Lookup("tls-key")))
	errPanic(viper.GetViper().BindPFlag("http.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))
	errPanic(viper.GetViper().BindPFlag("mqtt.enabled", serverCmd.Flags().Lookup("mqtt")))
	errPanic(viper.GetViper().BindPFlag("mqtt.broker-url", serverCmd.Flags().Lookup("mqtt-broker")))
	errPanic(viper.GetViper().BindPFlag("mqtt.base-topic", serverCmd.Flags().Lookup("mqtt-base-topic")))
	errPanic(viper.GetViper().BindPFlag("mqtt.publish-interval", serverCmd.Flags().Lookup("mqtt-publish-interval")))

	rootCmd.AddCommand(serverCmd)
}

func doServer() error {
	wait := viper.GetDuration("http.graceful-timeout")
	port := viper.GetUint("http.port")
	certFile := viper.GetString("http.cert")
	keyFile := viper.GetString("http.key")

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	// The handlers, collector and announcer all drive the one device
	// handle from their own goroutines.
	device := huskoll.Synchronize(newDevice())
	dh := handlers.NewDeviceHandler(device)

	registry := prometheus.NewRegistry()
	registry.MustRegister(exporter.NewCollector(device))

	r := mux.NewRouter()
	r.Use(middlewares.NewCorsMw(cors.Options{}))
	r.Use(middlewares.NewLoggingMw(logRequests))
	r.Use(middlewares.NewRecoveryMw())
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))
	dh.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  viper.GetDuration("http.read-timeout"),
		WriteTimeout: viper.GetDuration("http.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}

	announceCtx, cancelAnnounce := context.WithCancel(context.Background())
	defer cancelAnnounce()

	if viper.GetBool("mqtt.enabled") {
		baseTopic := viper.GetString("mqtt.base-topic")
		if baseTopic == "" {
			baseTopic = "huskoll/" + viper.GetString("huskoll.hwid")
		}

		announcer, err := announce.New(device, announce.Config{
			BrokerURL:       viper.GetString("mqtt.broker-url"),
			BaseTopic:       baseTopic,
			RetainStatus:    true,
			PublishInterval: viper.GetDuration("mqtt.publish-interval"),
			Username:        viper.GetString("mqtt.username"),
			Password:        viper.GetString("mqtt.password"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := announcer.Run(announceCtx); err != nil && err != context.Canceled {
				logging.Logger(nil).WithError(err).Error("running mqtt announcer")
			}
		}()
	}

	logging.Logger(nil).Infof("Serving on port %d", port)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = s.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = s.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logging.Logger(nil).WithError(err).Error("running server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Block until we receive a signal
	<-c

	cancelAnnounce()

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
	logging.Logger(nil).Info("exiting")
	return nil
}
