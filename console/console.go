// Package console is a line-oriented command loop for poking at a sensor over
// a serial port or a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/merliot/sonar/ultrasonic"
)

const (
	Prompt = "> "

	defaultWait     = 250 * time.Millisecond
	defaultInterval = 100 * time.Millisecond
)

var ErrUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Console runs commands against one sensor, writing results to out
type Console struct {
	sensor   *ultrasonic.Sensor
	out      io.Writer
	commands map[string]command
}

func New(sensor *ultrasonic.Sensor, out io.Writer) *Console {
	c := &Console{sensor: sensor, out: out}
	c.commands = map[string]command{
		"read":    {"read", "arm the trigger and print the latched distance", c.read},
		"raw":     {"raw", "print the latched sample in ticks with its generation", c.raw},
		"pending": {"pending", "report whether an unread echo is waiting", c.pending},
		"wait":    {"wait [timeout]", "wait for a fresh echo (default 250ms)", c.wait},
		"watch":   {"watch <n> [interval]", "print n readings, one per interval (default 100ms)", c.watch},
		"trigger": {"trigger", "start the trigger pulse train", c.trigger},
		"help":    {"help", "list commands", c.help},
	}
	return c
}

// Exec parses and runs one command line.  Blank lines do nothing.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := c.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
	if err := cmd.run(ctx, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
		}
		return err
	}
	return nil
}

// Run reads commands from in until EOF or ctx is done.  Command errors are
// printed, not returned.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, Prompt)
	for scanner.Scan() {
		if err := c.Exec(ctx, scanner.Text()); err != nil {
			fmt.Fprintf(c.out, "error: %s\r\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(c.out, Prompt)
	}
	return scanner.Err()
}

func (c *Console) read(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	fmt.Fprintf(c.out, "%d cm\r\n", c.sensor.ReadSensor())
	return nil
}

func (c *Console) raw(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	s, ok := c.sensor.Latest()
	if !ok {
		fmt.Fprintf(c.out, "no echo\r\n")
		return nil
	}
	fmt.Fprintf(c.out, "ticks %d gen %d\r\n", s.Ticks, s.Generation)
	return nil
}

func (c *Console) pending(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	fmt.Fprintf(c.out, "%t\r\n", c.sensor.EchoPending())
	return nil
}

func (c *Console) wait(ctx context.Context, args []string) error {
	timeout := defaultWait
	switch len(args) {
	case 0:
	case 1:
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			return ErrUsage
		}
		timeout = d
	default:
		return ErrUsage
	}
	s, err := c.sensor.Await(ctx, timeout)
	if errors.Is(err, ultrasonic.ErrStale) {
		fmt.Fprintf(c.out, "%d cm (stale)\r\n", s.Centimeters())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d cm\r\n", s.Centimeters())
	return nil
}

func (c *Console) watch(ctx context.Context, args []string) error {
	interval := defaultInterval
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return ErrUsage
	}
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return ErrUsage
		}
		interval = d
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		fmt.Fprintf(c.out, "%d cm\r\n", c.sensor.ReadSensor())
	}
	return nil
}

func (c *Console) trigger(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := c.sensor.StartTrigger(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "trigger running\r\n")
	return nil
}

func (c *Console) help(ctx context.Context, args []string) error {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := c.commands[name]
		fmt.Fprintf(c.out, "%-22s %s\r\n", cmd.usage, cmd.help)
	}
	return nil
}
