package livefeed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kingrea/lattice-monitor/internal/config"
)

const (
	// DefaultReconnectDelay is the fixed wait between a close and the next dial.
	DefaultReconnectDelay = 3 * time.Second
	// DefaultPingInterval spaces keepalive frames.
	DefaultPingInterval = 30 * time.Second
	// DefaultHandshakeTimeout bounds a single dial.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a single outbound frame.
	DefaultWriteTimeout = 5 * time.Second
)

// Settings captures runtime configuration for the live connection.
type Settings struct {
	URL              string
	ReconnectDelay   time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// SettingsFromConfig derives the websocket endpoint from the configured
// server origin: ws for http, wss for https.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	settings := Settings{
		ReconnectDelay:   DefaultReconnectDelay,
		PingInterval:     DefaultPingInterval,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
	}
	base, path := config.DefaultServerURL, config.DefaultWSPath
	if cfg != nil {
		base = cfg.Project.Server.URL
		path = cfg.Project.Server.WSPath
		settings.ReconnectDelay = cfg.Project.Live.ReconnectDelay.Std()
		settings.PingInterval = cfg.Project.Live.PingInterval.Std()
	}
	endpoint, err := Endpoint(base, path)
	if err != nil {
		return Settings{}, err
	}
	settings.URL = endpoint
	settings.normalize()
	return settings, nil
}

// Endpoint maps an http(s) origin plus path onto the matching ws(s) URL.
func Endpoint(origin, path string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("livefeed: parse origin: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("livefeed: origin %q must be http or https", origin)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("livefeed: origin %q has no host", origin)
	}
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	parsed.Path = strings.TrimRight(parsed.Path, "/") + path
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func (s *Settings) normalize() {
	if s.ReconnectDelay <= 0 {
		s.ReconnectDelay = DefaultReconnectDelay
	}
	if s.PingInterval < 0 {
		s.PingInterval = 0
	}
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
}
