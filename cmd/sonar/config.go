package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/merliot/sonar"
	"github.com/merliot/sonar/ranger"
	"github.com/spf13/cobra"
)

const (
	backendSim    = "sim"
	backendPeriph = "periph"
)

// Config holds the flags shared by every command.  Defaults come from
// SONAR_* environment variables.
type Config struct {
	Verbose     bool
	Backend     string
	TriggerPin  string
	EchoPin     string
	SimDistance uint

	Id       string
	Name     string
	Addr     string
	TLSHost  string
	User     string
	Passwd   string
	Dial     string
	Broker   string
	StoreDir string
	Period   time.Duration
	Timeout  time.Duration
}

func envDuration(name string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(sonar.GetEnv(name, def.String()))
	if err != nil {
		return def
	}
	return d
}

func envUint(name string, def uint) uint {
	n, err := strconv.ParseUint(sonar.GetEnv(name, strconv.FormatUint(uint64(def), 10)), 10, 32)
	if err != nil {
		return def
	}
	return uint(n)
}

func (c *Config) bindSensor(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.BoolVarP(&c.Verbose, "verbose", "v", false, "set debug logging level")
	f.StringVar(&c.Backend, "backend", sonar.GetEnv("SONAR_BACKEND", backendSim), "sensor backend (sim, periph)")
	f.StringVar(&c.TriggerPin, "trigger", sonar.GetEnv("SONAR_TRIGGER_PIN", "GPIO23"), "trigger GPIO pin name (periph)")
	f.StringVar(&c.EchoPin, "echo", sonar.GetEnv("SONAR_ECHO_PIN", "GPIO24"), "echo GPIO pin name (periph)")
	f.UintVar(&c.SimDistance, "sim-distance", envUint("SONAR_SIM_DISTANCE", 42), "simulated target distance in cm (sim)")
	f.DurationVar(&c.Timeout, "timeout", envDuration("SONAR_TIMEOUT", ranger.DefaultTimeout), "fresh echo timeout")
}

func (c *Config) bindServe(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.Id, "id", sonar.GetEnv("SONAR_ID", "sonar01"), "thing id")
	f.StringVar(&c.Name, "name", sonar.GetEnv("SONAR_NAME", "sonar"), "thing name")
	f.StringVar(&c.Addr, "addr", sonar.GetEnv("SONAR_ADDR", ":8000"), "HTTP listen address")
	f.StringVar(&c.TLSHost, "tls-host", sonar.GetEnv("SONAR_TLS_HOST", ""), "serve HTTPS for this host with Let's Encrypt")
	f.StringVar(&c.User, "user", sonar.GetEnv("SONAR_USER", ""), "basic auth user")
	f.StringVar(&c.Passwd, "passwd", sonar.GetEnv("SONAR_PASSWD", ""), "basic auth password")
	f.StringVar(&c.Dial, "dial", sonar.GetEnv("SONAR_DIAL", ""), "also connect to this websocket URL")
	f.StringVar(&c.Broker, "broker", sonar.GetEnv("SONAR_BROKER", ""), "MQTT broker URL, like tcp://localhost:1883")
	f.StringVar(&c.StoreDir, "store", sonar.GetEnv("SONAR_STORE", "."), "directory for saved state")
	f.DurationVar(&c.Period, "period", envDuration("SONAR_PERIOD", ranger.DefaultPeriod), "sample period")
}

// Validate checks the sensor flags
func (c *Config) Validate() error {
	switch c.Backend {
	case backendSim:
	case backendPeriph:
		if c.TriggerPin == "" || c.EchoPin == "" {
			return errors.New("periph backend needs --trigger and --echo pins")
		}
		if c.TriggerPin == c.EchoPin {
			return errors.New("trigger and echo must be different pins")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	return nil
}

// ValidateServe checks the serve flags
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !sonar.ValidId(c.Id) {
		return fmt.Errorf("invalid id %q: use only letters, digits and _", c.Id)
	}
	if !sonar.ValidId(c.Name) {
		return fmt.Errorf("invalid name %q: use only letters, digits and _", c.Name)
	}
	if c.Period <= 0 {
		return errors.New("period must be greater than 0")
	}
	if c.Passwd != "" && c.User == "" {
		return errors.New("password set without a user")
	}
	return nil
}
