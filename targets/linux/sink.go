//go:build linux && !tinygo

package main

import (
	"github.com/golang/glog"

	"obstacar/nav"
)

// logSink logs every status change
type logSink struct{}

func (logSink) Report(s nav.Status) {
	glog.Infof("%-11s %s turn=%s attempts=%d running=%v", s.State, s, s.Turn, s.Attempts, s.Running)
}
