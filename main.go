package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/juruen/digitpad/auth"
	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/session"
	"github.com/juruen/digitpad/shell"
	"github.com/juruen/digitpad/version"
)

// loadConfig reads the config and applies command line overrides before
// validating.
func loadConfig(path, port, weights string) (config.Config, error) {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return cfg, err
	}

	if port != "" {
		cfg.Server.Port = port
	}
	if weights != "" {
		cfg.UseWeights(weights)
	}
	return cfg, cfg.Validate()
}

func main() {
	serverMode := flag.Bool("server", false, "run the HTTP API server")
	port := flag.String("port", "", "server port, overrides the config")
	configPath := flag.String("config", "", "config file")
	weights := flag.String("weights", "", "dense classifier weights, overrides the config")
	jsonOutput := flag.Bool("json", false, "JSON output for shell commands")
	token := flag.String("token", "", "print an API token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -token")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	cfg, err := loadConfig(*configPath, *port, *weights)
	if err != nil {
		log.Error.Fatalf("invalid config: %v", err)
	}

	if *token != "" {
		if cfg.Server.JWTSecret == "" {
			log.Error.Fatalln("server.jwt_secret is not set")
		}
		t, err := auth.NewToken(cfg.Server.JWTSecret, *token, *tokenTTL)
		if err != nil {
			log.Error.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(t)
		return
	}

	classifier, err := classify.FromConfig(cfg.Classifier)
	if err != nil {
		// drawing still works, predictions report unavailable
		log.Warning.Printf("classifier unavailable: %v", err)
		classifier = nil
	}

	if *serverMode {
		runServerMode(cfg, classifier)
		return
	}

	ctx := &shell.ShellCtxt{
		Session:    session.New(session.OptionsFromConfig(cfg), classifier),
		Config:     cfg,
		JSONOutput: *jsonOutput,
	}
	if err := shell.RunShell(ctx, flag.Args()); err != nil {
		log.Error.Println("Error: ", err)
		os.Exit(1)
	}
}
