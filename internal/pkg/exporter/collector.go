package exporter

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jake-scott/huskoll-bridge/internal/pkg/huskoll"
)

const scrapeTimeout = 10 * time.Second

// fan speeds as a numeric level for graphing
var fanSpeedLevels = map[huskoll.FanSpeed]float64{
	huskoll.FanAuto:   0,
	huskoll.FanLow:    1,
	huskoll.FanMedium: 2,
	huskoll.FanHigh:   3,
}

// Collector scrapes the device on every Prometheus collection.  The
// vendor API is the source of truth, so there is no background poll
// loop; each /metrics hit costs one status fetch.
type Collector struct {
	device huskoll.Controller

	powerOn       prometheus.Gauge
	modeHeat      prometheus.Gauge
	setpoint      prometheus.Gauge
	ambient       prometheus.Gauge
	fanSpeed      prometheus.Gauge
	lastAlarm     prometheus.Gauge
	deviceInfo    *prometheus.GaugeVec
	scrapeSuccess prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

func NewCollector(device huskoll.Controller) *Collector {
	return &Collector{
		device: device,
		powerOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_power_on",
			Help: "Device power state (1=on, 0=off)",
		}),
		modeHeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_mode_heat",
			Help: "Operating mode (1=heat, 0=cool)",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_setpoint_celsius",
			Help: "Target temperature (set point)",
		}),
		ambient: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_ambient_temperature_celsius",
			Help: "Current environment temperature",
		}),
		fanSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_fan_speed_level",
			Help: "Fan speed (0=auto, 1=low, 2=medium, 3=high)",
		}),
		lastAlarm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_last_alarm_timestamp_seconds",
			Help: "Last alarm timestamp (epoch seconds)",
		}),
		deviceInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "huskoll_device_info",
			Help: "Device metadata (always 1)",
		}, []string{"hw_generation", "state"}),
		scrapeSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_scrape_success",
			Help: "Last scrape success (1=ok, 0=error)",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huskoll_last_success_timestamp_seconds",
			Help: "Last successful scrape timestamp (epoch seconds)",
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.powerOn.Describe(ch)
	c.modeHeat.Describe(ch)
	c.setpoint.Describe(ch)
	c.ambient.Describe(ch)
	c.fanSpeed.Describe(ch)
	c.lastAlarm.Describe(ch)
	c.deviceInfo.Describe(ch)
	c.scrapeSuccess.Describe(ch)
	c.lastSuccess.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	status, err := c.device.GetStatus(ctx)
	if err != nil {
		c.scrapeSuccess.Set(0)
		c.collectAll(ch)
		return
	}

	c.scrapeSuccess.Set(1)
	c.lastSuccess.Set(float64(time.Now().Unix()))

	if status.Power == huskoll.PowerOn {
		c.powerOn.Set(1)
	} else {
		c.powerOn.Set(0)
	}

	if status.Mode == huskoll.ModeHeat {
		c.modeHeat.Set(1)
	} else {
		c.modeHeat.Set(0)
	}

	c.setpoint.Set(status.Setpoint)
	c.ambient.Set(status.AmbientTemperature)
	c.fanSpeed.Set(fanSpeedLevels[status.FanSpeed])
	c.lastAlarm.Set(float64(status.LastAlarm.Unix()))

	c.deviceInfo.Reset()
	c.deviceInfo.WithLabelValues(status.HardwareGeneration, status.State).Set(1)

	c.collectAll(ch)
}

func (c *Collector) collectAll(ch chan<- prometheus.Metric) {
	c.powerOn.Collect(ch)
	c.modeHeat.Collect(ch)
	c.setpoint.Collect(ch)
	c.ambient.Collect(ch)
	c.fanSpeed.Collect(ch)
	c.lastAlarm.Collect(ch)
	c.deviceInfo.Collect(ch)
	c.scrapeSuccess.Collect(ch)
	c.lastSuccess.Collect(ch)
}
