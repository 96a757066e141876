// Package config loads the gateway's YAML configuration, overlays it with
// .env values, and watches the file for changes so the bearer key (and
// profile ARN) can rotate without a restart. The upstream base URL is read
// once at startup when the provider is built; a reloaded value does not
// reach the provider.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the gateway's full runtime configuration.
type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	APIKey         string `yaml:"api_key"`
	KiroBaseURL    string `yaml:"kiro_base_url"`
	ProfileArn     string `yaml:"profile_arn"`
	LogLevel       string `yaml:"log_level"`
	LogFile        string `yaml:"log_file"`
	RequestLogPath string `yaml:"request_log_path"`
}

func defaults() Config {
	return Config{
		ListenAddr:  ":8080",
		KiroBaseURL: "https://codewhisperer.us-east-1.amazonaws.com/generateAssistantResponse",
		LogLevel:    "info",
	}
}

// Load reads path as YAML over the defaults, then overlays any matching
// KIROPROXY_* environment variables (loaded from a .env file in the working
// directory, if present, via godotenv) on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	_ = godotenv.Load() // optional; missing .env is not an error

	overlayEnv(&cfg)
	return &cfg, nil
}

func overlayEnv(cfg *Config) {
	if v := os.Getenv("KIROPROXY_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("KIROPROXY_KIRO_BASE_URL"); v != "" {
		cfg.KiroBaseURL = v
	}
	if v := os.Getenv("KIROPROXY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("KIROPROXY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Watcher hot-reloads a Config from its source file on write events, handing
// each successfully reloaded Config to onReload.
type Watcher struct {
	path     string
	fsWatch  *fsnotify.Watcher
	mu       sync.Mutex
	current  *Config
	onReload func(*Config)
}

// WatchFile starts watching path for changes; onReload is invoked (from a
// background goroutine) with the newly loaded Config after each write.
// Returns the Watcher so the caller can Close it on shutdown.
func WatchFile(path string, initial *Config, onReload func(*Config)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: starting watcher: %w", err)
	}
	if err := fsWatch.Add(path); err != nil {
		_ = fsWatch.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	w := &Watcher{path: path, fsWatch: fsWatch, current: initial, onReload: onReload}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatch.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				log.Warnf("config: reload failed: %v", err)
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
			log.Infof("config: reloaded from %s", w.path)
			w.onReload(cfg)

		case err, ok := <-w.fsWatch.Errors:
			if !ok {
				return
			}
			log.Warnf("config: watcher error: %v", err)
		}
	}
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsWatch.Close()
}
