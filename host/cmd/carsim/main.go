// carsim runs the car firmware on a virtual board in a simulated room
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"obstacar/host/monitor"
	"obstacar/host/serial"
	"obstacar/nav"
	navconfig "obstacar/nav/config"
	"obstacar/protocol"
	"obstacar/sim"
)

var (
	scenarioFile = flag.String("scenario", "", "Scenario file ([car] and [world] sections)")
	configFile   = flag.String("config", "", "Navigation config (JSON)")
	plotFile     = flag.String("plot", "", "Write a PNG plot of the run")
	plotWidth    = flag.Int("width", 1200, "Plot width")
	plotHeight   = flag.Int("height", 500, "Plot height")
	showTrace    = flag.Bool("trace", false, "Print every status change")
	showLink     = flag.Bool("link", false, "Send status over a framed link and print what a monitor decodes")
	duration     = flag.Duration("duration", 0, "Override the scenario duration")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	sc := sim.DefaultScenario()
	if *scenarioFile != "" {
		s, err := sim.LoadScenario(*scenarioFile)
		if err != nil {
			glog.Exitf("scenario: %v", err)
		}
		sc = *s
	}
	if *configFile != "" {
		cfg, err := navconfig.LoadFile(*configFile)
		if err != nil {
			glog.Exitf("config: %v", err)
		}
		sc.Nav = *cfg
	}
	if *duration > 0 {
		sc.Duration = *duration
	}

	var sinks []nav.StatusSink
	if *showLink {
		mon, link := attachMonitor()
		defer mon.Close()
		sinks = append(sinks, link)
	}

	board, err := sim.NewBoard(sc, sinks...)
	if err != nil {
		glog.Exitf("%v", err)
	}
	r, err := board.Run()
	if err != nil {
		glog.Exitf("%v", err)
	}

	if *showTrace {
		board.Trace.WriteTo(os.Stdout)
	}
	fmt.Printf("ran %v: %s  state=%s turns=%d travelled=%.0fcm collisions=%d pings=%d echo=%d\n",
		sc.Duration, r.Final, r.Final.State, r.Turns, r.Travelled, r.Collisions, r.Pings, r.EchoCycles)

	if *plotFile != "" {
		if err := board.Trace.Plot(*plotFile, *plotWidth, *plotHeight, sc.Nav.Bands); err != nil {
			glog.Exitf("plot: %v", err)
		}
		glog.Infof("wrote %s", *plotFile)
	}

	if r.Collisions > 0 {
		os.Exit(2)
	}
}

// attachMonitor connects a monitor to the car end of an in-memory link and
// returns the sink the board reports through
func attachMonitor() (*monitor.Monitor, *nav.LinkSink) {
	carEnd, hostEnd := serial.Pipe()

	mon := monitor.New()
	mon.Attach(hostEnd)
	mon.OnStatus(func(s nav.Status) {
		fmt.Println("link:", monitor.FormatStatus(s))
	})

	// Commands from the host are not read by the simulated car
	link := nav.NewLinkSink(protocol.NewTransport(carEnd, nil))
	return mon, link
}
