package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-ping/ping"
	"github.com/uno-framework/uno/ulog"
)

var pingTaskServers = []string{}

// pingServer probes a backend host once in the background; pure diagnostics,
// failures are logged and ignored.
func pingServer(domain string) {
	if slices.Index(pingTaskServers, domain) != -1 {
		return
	}
	pingTaskServers = append(pingTaskServers, domain)

	pinger, err := ping.NewPinger(domain)
	if err != nil {
		ulog.Info().AnErr("Step1.5 ERROR NewPinger", err).Send()
		return
	}
	pinger.Count = 4
	pinger.Timeout = time.Second * 10
	pinger.OnFinish = func(stats *ping.Statistics) {
		ulog.Info().Str("Step1.5 Ping", fmt.Sprintf("%s %d/%d/%v%%", stats.Addr, stats.PacketsSent, stats.PacketsRecv, stats.PacketLoss)).Send()
		ulog.Info().Str("Step1.5 Ping rtt", fmt.Sprintf("%v/%v/%v/%v", stats.MinRtt, stats.AvgRtt, stats.MaxRtt, stats.StdDevRtt)).Send()
	}
	go func() {
		if err := pinger.Run(); err != nil {
			ulog.Info().AnErr("Step1.5 ERROR Ping", err).Send()
		}
	}()
}
