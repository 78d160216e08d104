// Package keepalive pings the bot's own health endpoint on a schedule so
// free-tier hosting doesn't idle the instance out.
package keepalive

import (
	"net/http"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"

	. "github.com/roelfdiedericks/aibolit/internal/logging"
)

const pingSchedule = "@every 5m"

// Pinger periodically hits <externalURL>/health.
type Pinger struct {
	url    string
	cron   *cronlib.Cron
	client *http.Client
}

// New creates a pinger for the external base URL. An empty URL yields a
// no-op pinger: local runs have nothing to keep alive.
func New(externalURL string) *Pinger {
	return &Pinger{
		url:    strings.TrimRight(externalURL, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Start schedules the ping loop. Safe to call with no URL configured.
func (p *Pinger) Start() {
	if p.url == "" {
		L_debug("keepalive: no external URL configured, pinger disabled")
		return
	}

	p.cron = cronlib.New()
	if _, err := p.cron.AddFunc(pingSchedule, p.ping); err != nil {
		L_error("keepalive: failed to schedule ping", "error", err)
		return
	}
	p.cron.Start()
	L_info("keepalive: scheduled", "url", p.url+"/health", "every", pingSchedule)
}

func (p *Pinger) ping() {
	resp, err := p.client.Get(p.url + "/health")
	if err != nil {
		L_debug("keepalive: ping failed", "error", err)
		return
	}
	resp.Body.Close()
	L_debug("keepalive: ping", "status", resp.StatusCode)
}

// Stop halts the schedule.
func (p *Pinger) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}
