package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/analyzer"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	chain := flag.String("chain", "", "Skip chain detection and analyze on this network")
	report := flag.Bool("report", false, "Log periodic runtime reports")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Zagama.Name,
		"version": cfg.Zagama.Version,
	}).Info("starting zagama")

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Zagama.Name)
	}

	addresses := flag.Args()
	if len(addresses) == 0 {
		log.Error("no contract addresses given")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *report {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	a, err := analyzer.New(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to build analyzer")
		os.Exit(1)
	}
	a.StartSweeps(ctx)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutdown signal received")
		cancel()
	}()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	exitCode := 0
	for _, raw := range addresses {
		var rep *analyzer.Report
		if *chain != "" {
			var id token.ChainID
			if id, err = token.ParseChain(*chain); err == nil {
				rep, err = a.AnalyzeOnChain(ctx, raw, id)
			}
		} else {
			rep, err = a.Analyze(ctx, raw)
		}
		if err != nil {
			log.WithFields(logger.Fields{"address": raw}).WithError(err).Error("analysis failed")
			exitCode = 1
			continue
		}
		if err := enc.Encode(rep); err != nil {
			log.WithError(err).Error("failed to encode report")
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
