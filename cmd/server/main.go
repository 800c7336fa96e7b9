// Package main is the entry point for the msq2midi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/msq2midi/pkg/api"
	"github.com/james-see/msq2midi/pkg/config"
	"github.com/james-see/msq2midi/pkg/debug"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	defaultPort := 8080
	if _, err := fmt.Sscanf(cfg.ServerPort, "%d", &defaultPort); err != nil {
		defaultPort = 8080
	}

	port := flag.Int("port", defaultPort, "Server port")
	debugLog := flag.String("debug", cfg.DebugLog, "Write a codec debug log to this file")
	flag.Parse()

	if *debugLog != "" {
		if err := debug.Enable(*debugLog); err != nil {
			fmt.Fprintf(os.Stderr, "Debug log error: %v\n", err)
			os.Exit(1)
		}
		defer debug.Disable()
	}

	fmt.Printf("Starting msq2midi API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
