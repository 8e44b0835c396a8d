// carmon follows a car over its status link and drives it from a shell
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"github.com/google/shlex"

	"obstacar/host/monitor"
	"obstacar/host/serial"
	"obstacar/host/telemetry"
	"obstacar/nav"
	"obstacar/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	script  = flag.String("e", "", "Run the ';'-separated commands and exit")
	broker  = flag.String("mqtt", "", "Publish every status to this broker, e.g. mqtt://host:1883/cars/one")
	timeout = flag.Duration("timeout", 2*time.Second, "How long to wait for a status report")
)

const monitorKey = "$monitor"

func main() {
	flag.Parse()

	m := monitor.New()
	if err := m.ConnectWithConfig(&serial.Config{Device: *device, Baud: *baud, ReadTimeout: 100}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	if *broker != "" {
		pub, err := telemetry.NewPublisher(*broker)
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		if err := pub.Connect(telemetry.DefaultConnectTimeout); err != nil {
			glog.Exitf("%v", err)
		}
		defer pub.Close()
		m.OnStatus(func(s nav.Status) {
			if err := pub.Publish(s); err != nil {
				glog.Warningf("mqtt publish: %v", err)
			}
		})
		glog.Infof("publishing status to %s", *broker)
	}

	shell := newShell(m)

	if *script != "" {
		if err := runScript(shell, *script); err != nil {
			glog.Errorf("%v", err)
			glog.Flush()
			os.Exit(1)
		}
		glog.Flush()
		return
	}

	shell.Printf("carmon %s on %s\n", protocol.Version, *device)
	shell.Run()
	glog.Flush()
}

// runScript runs each ';'-separated command, with shell-style quoting
func runScript(shell *ishell.Shell, text string) error {
	for _, line := range strings.Split(text, ";") {
		args, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("parse %q: %w", line, err)
		}
		if len(args) == 0 {
			continue
		}
		if err := shell.Process(args...); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return nil
}

func newShell(m *monitor.Monitor) *ishell.Shell {
	shell := ishell.New()
	shell.Set(monitorKey, m)
	shell.SetPrompt("car > ")
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}
	return shell
}

func monitorFrom(c *ishell.Context) *monitor.Monitor {
	return c.Get(monitorKey).(*monitor.Monitor)
}

func send(fn func(*monitor.Monitor) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := fn(monitorFrom(c)); err != nil {
			c.Err(err)
			return
		}
		c.Println("OK")
	}
}

var commands = []*ishell.Cmd{
	{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "show the last status report",
		Func: func(c *ishell.Context) {
			m := monitorFrom(c)
			if _, ok := m.Status(); !ok {
				if _, err := m.WaitStatus(*timeout); err != nil {
					c.Err(err)
					return
				}
			}
			s, _ := m.Status()
			c.Println(monitor.FormatStatus(s))
		},
	},
	{
		Name: "start",
		Help: "start a run",
		Func: send((*monitor.Monitor).Start),
	},
	{
		Name: "stop",
		Help: "stop the car",
		Func: send((*monitor.Monitor).Stop),
	},
	{
		Name:    "dir",
		Aliases: []string{"d"},
		Help:    "toggle the preferred turn (only during direction selection)",
		Func:    send((*monitor.Monitor).ToggleDirection),
	},
	{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[N] print the next N status reports (default 10)",
		Func: func(c *ishell.Context) {
			n := 10
			if len(c.Args) > 0 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil || v <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				n = v
			}
			m := monitorFrom(c)
			for i := 0; i < n; i++ {
				s, err := m.WaitStatus(*timeout)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(monitor.FormatStatus(s))
			}
		},
	},
	{
		Name: "link",
		Help: "show link counters",
		Func: func(c *ishell.Context) {
			m := monitorFrom(c)
			c.Printf("reports=%d framing-errors=%d\n", m.Reports(), m.LinkErrors())
		},
	},
}
