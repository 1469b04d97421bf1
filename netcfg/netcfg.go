// Package netcfg loads client networking configuration from the
// environment, with a .env file picked up when present so local setups
// don't have to export anything.
package netcfg

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerURL        = "ws://127.0.0.1:8080/ws"
	DefaultDialTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultTokenPath        = ".msc_token"
)

// Config is everything the session layer needs to reach the match server.
type Config struct {
	ServerURL        string
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	TokenPath        string
}

// Load reads MSC_SERVER_URL, MSC_DIAL_TIMEOUT, MSC_HANDSHAKE_TIMEOUT and
// MSC_TOKEN_PATH, falling back to defaults for anything unset or
// unparsable. A .env file in the working directory is loaded first; a
// missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServerURL:        envString("MSC_SERVER_URL", DefaultServerURL),
		DialTimeout:      envDuration("MSC_DIAL_TIMEOUT", DefaultDialTimeout),
		HandshakeTimeout: envDuration("MSC_HANDSHAKE_TIMEOUT", DefaultHandshakeTimeout),
		TokenPath:        envString("MSC_TOKEN_PATH", DefaultTokenPath),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
