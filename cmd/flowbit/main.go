package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/five82/flowbit/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override flowbit config path (optional)")
	serverURL := flag.String("server", "", "processing service address (optional, defaults to 127.0.0.1:8000)")
	pollMillis := flag.Int("poll", 0, "status poll interval in milliseconds (optional, defaults to 1000)")
	plain := flag.Bool("plain", false, "print status changes to stdout instead of starting the TUI")
	processType := flag.String("type", "", "force the input type: email, json or pdf (optional)")
	outPath := flag.String("out", "", "plain mode: save the final trace here (.json, .yaml)")
	history := flag.Bool("history", false, "list previously processed files and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: flowbit [flags] [file]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// A missing .env is the common case.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:  *configPath,
		ServerURL:   *serverURL,
		PollMillis:  *pollMillis,
		File:        flag.Arg(0),
		ProcessType: *processType,
		OutPath:     *outPath,
		Plain:       *plain,
		History:     *history,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "flowbit: %v\n", err)
		return 1
	}
	return 0
}
