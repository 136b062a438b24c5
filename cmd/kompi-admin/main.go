// Command kompi-admin is a maintenance tool for the engine database.
//
// Subcommands:
//
//	recount  rebuild the advisory click and scan counters from the event log
//	dump     write every link as JSON to stdout
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/kompihq/kompi-engine/pkg/adapters/repository/sqlite"
	"github.com/kompihq/kompi-engine/pkg/config"
	"github.com/kompihq/kompi-engine/pkg/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configuration:", err)
		os.Exit(1)
	}
	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogFormat == "json", Output: os.Stderr})

	repo, err := sqlite.New(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect to database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "recount":
		if err := repo.RecountClicks(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "recount:", err)
			os.Exit(1)
		}
		fmt.Println("counters rebuilt")
	case "dump":
		links, err := repo.Dump(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "dump:", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(links); err != nil {
			fmt.Fprintln(os.Stderr, "encode:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kompi-admin <recount|dump>")
}
