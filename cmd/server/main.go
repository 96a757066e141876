// Command server runs the Kiro↔OpenAI translation gateway.
package main

import (
	"flag"
	"os"

	"github.com/kiroproxy/gateway/internal/api"
	"github.com/kiroproxy/gateway/internal/config"
	"github.com/kiroproxy/gateway/internal/credentials"
	"github.com/kiroproxy/gateway/internal/kiroprovider"
	"github.com/kiroproxy/gateway/internal/logging"
	"github.com/kiroproxy/gateway/internal/requestlog"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the gateway's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("server: loading config: %v", err)
	}

	logging.Configure(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	tokens := credentials.NewStaticTokenManager(os.Getenv("KIRO_ACCESS_TOKEN"))
	if path := credentials.DiscoverIDETokenFile(); path != "" {
		log.Infof("server: using IDE token file %s", path)
		tokens.SetTokenSource(credentials.NewIDEFileTokenSource(path))
	}

	provider := kiroprovider.New(cfg.KiroBaseURL, tokens)
	logs, err := requestlog.NewWithPersistence(cfg.RequestLogPath)
	if err != nil {
		log.Warnf("server: loading persisted request log: %v", err)
		logs = requestlog.New()
	}
	server := api.NewServer(provider, logs, cfg)

	if watcher, err := config.WatchFile(*configPath, cfg, server.UpdateConfig); err != nil {
		log.Warnf("server: config hot-reload disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	router := api.NewRouter(server)
	log.Infof("server: listening on %s", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
