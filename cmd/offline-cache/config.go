package main

import (
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Origin URL to proxy to.
	Origin string `yaml:"origin" env:"OFFLINE_CACHE_ORIGIN"`
	// Port to serve intercepted traffic on.
	Port int `yaml:"port" env:"OFFLINE_CACHE_PORT"`
	// Port for the management API (health, metrics, sync, push).
	ManagementPort int `yaml:"managementPort" env:"OFFLINE_CACHE_MANAGEMENT_PORT"`
	// Cache generation identifier. Bump on deploy to invalidate all
	// previously cached content.
	Generation string `yaml:"generation" env:"OFFLINE_CACHE_GENERATION"`
	// Cache provider to use: sqlite, memory, or bigcache.
	Provider string `yaml:"provider" env:"OFFLINE_CACHE_PROVIDER"`
	// Cache DB file name for the sqlite provider.
	DBFilename string `yaml:"db" env:"OFFLINE_CACHE_DB"`
	// App shell paths bulk-cached on install.
	Precache []string `yaml:"precache" env:"OFFLINE_CACHE_PRECACHE" envSeparator:","`
	// URL substrings excluded from interception.
	Exclude []string `yaml:"exclude" env:"OFFLINE_CACHE_EXCLUDE" envSeparator:","`
	// Offline fallback document path, expected to be precached.
	OfflinePath string `yaml:"offlinePath" env:"OFFLINE_CACHE_OFFLINE_PATH"`
	// Background sync tags to register.
	SyncTags []string `yaml:"syncTags" env:"OFFLINE_CACHE_SYNC_TAGS" envSeparator:","`
	Push     Push     `yaml:"push"`
}

type Push struct {
	Title string `yaml:"title" env:"OFFLINE_CACHE_PUSH_TITLE"`
	Body  string `yaml:"body" env:"OFFLINE_CACHE_PUSH_BODY"`
	Icon  string `yaml:"icon" env:"OFFLINE_CACHE_PUSH_ICON"`
	Badge string `yaml:"badge" env:"OFFLINE_CACHE_PUSH_BADGE"`
}

// getConfig builds the configuration from the optional YAML file, with
// environment variables overriding file values and defaults filling the
// rest.
func getConfig(filename string) (Config, error) {
	var config Config
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, err
		}
	}
	if err := env.Parse(&config); err != nil {
		return config, err
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ManagementPort == 0 {
		c.ManagementPort = 9090
	}
	if c.Generation == "" {
		c.Generation = "v1"
	}
	if c.Provider == "" {
		c.Provider = "sqlite"
	}
	if c.DBFilename == "" {
		c.DBFilename = "cache.db"
	}
	if c.OfflinePath == "" {
		c.OfflinePath = "/offline"
	}
	if len(c.Precache) == 0 {
		c.Precache = []string{
			"/",
			"/offline",
			"/static/css/style.css",
			"/static/js/app.js",
			"/static/js/pwa.js",
			"/static/manifest.json",
			"/static/icons/icon-192x192.png",
			"/static/icons/icon-512x512.png",
		}
	}
	if len(c.Exclude) == 0 {
		c.Exclude = []string{"/analyze", "/status/", "ws:"}
	}
	if len(c.SyncTags) == 0 {
		c.SyncTags = []string{"sync-analyses"}
	}
}
