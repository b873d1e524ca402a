// Package config loads reqrypt-tunneld's settings from the process
// environment.
package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds every environment-tunable knob the daemon reads at
// startup. Fields map to TUNNELD_-prefixed environment variables.
type Settings struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	CacheDir   string `envconfig:"CACHE_DIR" default:"/var/lib/reqrypt-tunneld"`
	ConfigMTU  uint16 `envconfig:"CONFIG_MTU" default:"1400"`

	// InitialURLs seeds the cache; comma-separated tunnel endpoint URLs.
	// Each is added on every start, whether or not TUNNELS already
	// exists on disk.
	InitialURLs []string `envconfig:"INITIAL_URLS"`
}

// Cfg is the process-wide loaded settings, populated by Load.
var Cfg Settings

// Load populates Cfg from the environment, prefixed TUNNELD_, and
// exits the process on malformed input — there is nothing sensible to
// run with a config we can't parse.
func Load() {
	if err := envconfig.Process("TUNNELD", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
