package items

import (
	"context"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const defaultProbeTimeout = 1 * time.Second

// Prober checks whether a tool connection's host answers before its
// connection entry is embedded in a share.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a prober. A non-positive timeout falls back to 1s.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

// Reachable pings the host of rawURL once, unprivileged. Any parse or probe
// failure counts as unreachable.
func (p *Prober) Reachable(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	pinger, err := probing.NewPinger(u.Hostname())
	if err != nil {
		return false
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = p.timeout
	if err := pinger.RunWithContext(ctx); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
