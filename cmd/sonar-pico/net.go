//go:build tinygo && nano_rp2040

package main

import (
	"context"
	"net"
	"time"

	"github.com/merliot/sonar/publish"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
)

func netConnect(ssid, pass string) error {
	link, _ := probe.Probe()
	return link.NetConnect(&netlink.ConnectParams{
		Ssid:       ssid,
		Passphrase: pass,
	})
}

func dialBroker(addr, id string) (*publish.Natiu, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pub, err := publish.NewNatiu(ctx, conn, publish.Config{ClientID: "sonar-" + id})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return pub, nil
}
