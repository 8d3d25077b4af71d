package main

import (
	"context"
	"flag"
	"fmt"
	golog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/berlinopendata/poisync"
	"github.com/berlinopendata/poisync/config"
	"github.com/berlinopendata/poisync/import_"
	"github.com/berlinopendata/poisync/logging"
)

var log = logging.NewLogger("")

func PrintCmds() {
	fmt.Fprintf(os.Stderr, "Usage: %s COMMAND [args]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Available commands:")
	fmt.Fprintln(os.Stderr, "\timport")
	fmt.Fprintln(os.Stderr, "\tversion")
}

func main() {
	golog.SetFlags(golog.LstdFlags | golog.Lshortfile)

	if len(os.Args) <= 1 {
		PrintCmds()
		logging.Shutdown()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		opts, err := config.ParseImport(os.Args[2:])
		if err == flag.ErrHelp {
			logging.Shutdown()
			os.Exit(2)
		}
		if err != nil {
			log.Fatal(err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = import_.Import(ctx, opts)
		stop()
		if err != nil {
			log.Fatal(err)
		}
	case "version":
		fmt.Println(poisync.Version)
		os.Exit(0)
	default:
		PrintCmds()
		log.Fatalf("invalid command: '%s'", os.Args[1])
	}
	logging.Shutdown()
	os.Exit(0)
}
