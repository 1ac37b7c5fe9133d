// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package pinger

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ProbeResult is one ping round against a single host. RTT fields are nil
// when no reply came back.
type ProbeResult struct {
	Reachable bool
	Sent      int // echo requests sent
	Lost      int // echo requests without a reply
	RTTMin    *float64
	RTTAvg    *float64
	RTTMax    *float64
}

// Prober sends echo requests to a host. Swappable for tests.
type Prober interface {
	Probe(ctx context.Context, ip string) (ProbeResult, error)
}

// ExecProber shells out to the system ping binary. Raw ICMP sockets need
// CAP_NET_RAW; iputils ping is setuid/setcap in every distro image we
// deploy to, so delegating keeps the backend unprivileged.
type ExecProber struct {
	Count   int
	Timeout time.Duration
}

var (
	packetsRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	rttRe     = regexp.MustCompile(`= ([\d.]+)/([\d.]+)/([\d.]+)(?:/[\d.]+)? ms`)
)

// Probe runs one ping round and parses the iputils summary.
func (p *ExecProber) Probe(ctx context.Context, ip string) (ProbeResult, error) {
	count := p.Count
	if count < 1 {
		count = 1
	}
	deadline := int(p.Timeout.Seconds())
	if deadline < 1 {
		deadline = 10
	}

	cmd := exec.CommandContext(ctx, "ping",
		"-n", "-q",
		"-c", strconv.Itoa(count),
		"-w", strconv.Itoa(deadline),
		ip)
	out, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no replies; that is a result, not a failure.
		if _, ok := err.(*exec.ExitError); ok {
			result, parseErr := parsePingOutput(string(out))
			if parseErr != nil {
				return ProbeResult{Sent: count, Lost: count}, nil
			}
			return result, nil
		}
		return ProbeResult{}, fmt.Errorf("pinging %s: %w", ip, err)
	}
	return parsePingOutput(string(out))
}

// parsePingOutput extracts loss and rtt stats from iputils ping output:
//
//	4 packets transmitted, 4 received, 0% packet loss, time 3004ms
//	rtt min/avg/max/mdev = 0.045/0.058/0.077/0.012 ms
func parsePingOutput(out string) (ProbeResult, error) {
	m := packetsRe.FindStringSubmatch(out)
	if m == nil {
		return ProbeResult{}, fmt.Errorf("no packet summary in ping output")
	}
	sent, err := strconv.Atoi(m[1])
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parsing packets sent %q: %w", m[1], err)
	}
	received, err := strconv.Atoi(m[2])
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parsing packets received %q: %w", m[2], err)
	}

	result := ProbeResult{
		Reachable: received > 0,
		Sent:      sent,
		Lost:      sent - received,
	}

	if rtt := rttRe.FindStringSubmatch(out); rtt != nil {
		vals := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(rtt[i+1], 64)
			if err != nil {
				return result, nil
			}
			vals[i] = v
		}
		result.RTTMin, result.RTTAvg, result.RTTMax = &vals[0], &vals[1], &vals[2]
	}
	return result, nil
}

// hostOnly strips an optional port or CIDR suffix some upstreams attach
// to node IPs.
func hostOnly(ip string) string {
	ip = strings.TrimSpace(ip)
	if i := strings.IndexByte(ip, '/'); i >= 0 {
		ip = ip[:i]
	}
	return ip
}
