package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/RMahshie/pulsesim/internal/conntest"
)

func main() {
	url := flag.String("url", conntest.DefaultURL, "Base URL of the sensor")
	skipReadings := flag.Bool("skip-readings", false, "Skip the readings test (which takes 30 seconds)")
	yes := flag.BoolP("yes", "y", false, "Start the readings test without waiting for Enter")
	verbose := flag.BoolP("verbose", "v", false, "Log request errors")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tester := conntest.New(*url, os.Stdout, os.Stdin)
	tester.Prompt = !*yes
	tester.Run(ctx, *skipReadings)
}
