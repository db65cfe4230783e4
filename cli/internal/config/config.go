package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Default configuration values
const (
	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// ErrRelayWithoutTURN rejects --relay when no TURN server is configured.
var ErrRelayWithoutTURN = errors.New("cannot force relay mode without TURN server configured")

// Config holds application configuration
type Config struct {
	// ServerURL is the websocket endpoint of the signaling server.
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool

	// Media files played into the call.
	VideoFile string
	AudioFile string

	// Timeout bounds negotiation; zero waits forever.
	Timeout time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	VideoFile  string
	AudioFile  string
	Timeout    time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	serverURL, err := normalizeServerURL(firstNonEmpty(opts.ServerURL, os.Getenv("SERVER_URL"), DefaultServerURL))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerURL:  serverURL,
		STUNServer: firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:   firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:   firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
		ForceRelay: opts.ForceRelay,
		VideoFile:  firstNonEmpty(opts.VideoFile, os.Getenv("VIDEO_FILE")),
		AudioFile:  firstNonEmpty(opts.AudioFile, os.Getenv("AUDIO_FILE")),
		Timeout:    opts.Timeout,
	}

	if !cfg.ForceRelay {
		if v := os.Getenv("FORCE_RELAY"); v != "" {
			relay, err := cast.ToBoolE(v)
			if err != nil {
				return nil, fmt.Errorf("FORCE_RELAY: %w", err)
			}
			cfg.ForceRelay = relay
		}
	}

	if cfg.Timeout == 0 {
		if v := os.Getenv("CALL_TIMEOUT"); v != "" {
			d, err := cast.ToDurationE(v)
			if err != nil {
				return nil, fmt.Errorf("CALL_TIMEOUT: %w", err)
			}
			cfg.Timeout = d
		}
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, ErrRelayWithoutTURN
	}

	return cfg, nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. A bare host
// expands to UDP, TCP and TLS variants on the standard ports.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.HasPrefix(c.TURNServer, "turn:") || strings.HasPrefix(c.TURNServer, "turns:") {
		return []string{c.TURNServer}
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// normalizeServerURL accepts a full ws(s) URL, an http(s) URL, or a bare
// host, and returns the websocket endpoint.
func normalizeServerURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
