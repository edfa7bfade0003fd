package main

import (
	"bytes"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func validConfig() Config {
	return Config{
		Backend: backendSim,
		Id:      "sonar01",
		Name:    "front",
		Period:  time.Second,
		Timeout: time.Second,
	}
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	cfg := validConfig()
	c.Assert(cfg.ValidateServe(), qt.IsNil)

	cfg = validConfig()
	cfg.Backend = "gpio"
	c.Assert(cfg.Validate(), qt.ErrorMatches, `unknown backend "gpio"`)

	cfg = validConfig()
	cfg.Backend = backendPeriph
	cfg.TriggerPin, cfg.EchoPin = "GPIO23", "GPIO23"
	c.Assert(cfg.Validate(), qt.ErrorMatches, "trigger and echo must be different pins")

	cfg = validConfig()
	cfg.Timeout = 0
	c.Assert(cfg.Validate(), qt.ErrorMatches, "timeout must be greater than 0")

	cfg = validConfig()
	cfg.Id = "sonar-01"
	c.Assert(cfg.ValidateServe(), qt.ErrorMatches, `invalid id "sonar-01".*`)

	cfg = validConfig()
	cfg.Passwd = "secret"
	c.Assert(cfg.ValidateServe(), qt.ErrorMatches, "password set without a user")
}

func TestEnvDefaults(t *testing.T) {
	c := qt.New(t)
	c.Setenv("SONAR_PERIOD", "2s")
	c.Setenv("SONAR_SIM_DISTANCE", "17")
	c.Setenv("SONAR_TIMEOUT", "bogus")
	c.Assert(envDuration("SONAR_PERIOD", time.Second), qt.Equals, 2*time.Second)
	c.Assert(envDuration("SONAR_TIMEOUT", time.Second), qt.Equals, time.Second)
	c.Assert(envUint("SONAR_SIM_DISTANCE", 42), qt.Equals, uint(17))
}

func TestReadCommand(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"read", "--sim-distance", "25", "--timeout", "1s", "-n", "2"})
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "25 cm\n25 cm\n")
}

func TestVersionCommand(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "sonar dev (commit none, built unknown)\n")
}
