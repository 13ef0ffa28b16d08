// Package main - test-runner
// Executable to run the balance suite against a config file or the defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/MRamiBalles/Conversion/server/internal/platform/config"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/test"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file whose game section is tested")
	flag.Parse()

	fmt.Println("CONVERSION - BALANCE SUITE")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "test-runner: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	suite := test.NewBalanceSuite(cfg.Game, logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel)))
	suite.Run(ctx)

	passed, failed := 0, 0
	for _, r := range suite.GetResults() {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("SUMMARY")
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\nThe balance needs recalibration")
		os.Exit(1)
	}
	fmt.Println("\nBalance holds")
}
