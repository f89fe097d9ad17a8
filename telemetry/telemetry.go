// Package telemetry sends a single best-effort, anonymous usage event per
// top-level command invocation. It has no effect on control flow: failures
// to enqueue or deliver an event are silently swallowed, and a disabled or
// misconfigured client behaves identically to a fully successful one from
// the caller's point of view.
package telemetry

import (
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
)

var (
	PostHogAPIKey   = "phc_development_key"
	PostHogEndpoint = "https://eu.i.posthog.com"
)

// OptOutEnvVar always disables telemetry when set, regardless of settings.
const OptOutEnvVar = "GIT_SYNC_WORLD_TELEMETRY_OPTOUT"

// Event describes one command invocation. Properties are limited to values
// that reveal nothing about the repository, the world, or individual
// revisions.
type Event struct {
	Command       string // "status", "sync", "continue", "skip", "abort"
	Outcome       string // "ok", "walk-error", "config-error", "usage-error"
	RollbackCount int
	CommitCount   int
}

// Client is the telemetry sink.
type Client interface {
	TrackCommand(e Event)
	Close()
}

// NoOpClient discards every event. Used whenever telemetry is disabled or
// could not be set up.
type NoOpClient struct{}

func (NoOpClient) TrackCommand(Event) {}
func (NoOpClient) Close()             {}

type silentLogger struct{}

func (silentLogger) Logf(_ string, _ ...interface{})   {}
func (silentLogger) Debugf(_ string, _ ...interface{}) {}
func (silentLogger) Warnf(_ string, _ ...interface{})  {}
func (silentLogger) Errorf(_ string, _ ...interface{}) {}

// PostHogClient is the real telemetry client.
type PostHogClient struct {
	client     posthog.Client
	machineID  string
	cliVersion string
	mu         sync.RWMutex
}

// NewClient builds a Client according to the opt-out env var and the
// ambient settings' tri-state telemetry field: telemetryEnabled == nil means
// "not yet asked" and defaults to disabled, matching the reference tool's
// own tri-state default.
func NewClient(version string, telemetryEnabled *bool) Client { //nolint:ireturn
	if os.Getenv(OptOutEnvVar) != "" {
		return NoOpClient{}
	}
	if telemetryEnabled == nil || !*telemetryEnabled {
		return NoOpClient{}
	}

	id, err := machineid.ProtectedID("git-sync-world")
	if err != nil {
		return NoOpClient{}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 100 * time.Millisecond,
		}).DialContext,
		TLSHandshakeTimeout:   100 * time.Millisecond,
		ResponseHeaderTimeout: 100 * time.Millisecond,
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:           PostHogEndpoint,
		ShutdownTimeout:    100 * time.Millisecond,
		BatchUploadTimeout: 200 * time.Millisecond,
		Transport:          transport,
		Logger:             silentLogger{},
		DisableGeoIP:       posthog.Ptr(true),
		DefaultEventProperties: posthog.NewProperties().
			Set("cli_version", version).
			Set("os", runtime.GOOS).
			Set("arch", runtime.GOARCH),
	})
	if err != nil {
		return NoOpClient{}
	}

	return &PostHogClient{client: client, machineID: id, cliVersion: version}
}

func (p *PostHogClient) TrackCommand(e Event) {
	p.mu.RLock()
	id := p.machineID
	c := p.client
	p.mu.RUnlock()
	if c == nil {
		return
	}

	props := posthog.NewProperties().
		Set("command", e.Command).
		Set("outcome", e.Outcome).
		Set("rollback_count", e.RollbackCount).
		Set("commit_count", e.CommitCount)

	//nolint:errcheck // best-effort telemetry, failures never affect the walk
	_ = c.Enqueue(posthog.Capture{
		DistinctId: id,
		Event:      "sync_command_executed",
		Properties: props,
	})
}

func (p *PostHogClient) Close() {
	p.mu.RLock()
	c := p.client
	p.mu.RUnlock()
	if c != nil {
		_ = c.Close()
	}
}
