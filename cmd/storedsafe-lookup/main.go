// Command storedsafe-lookup resolves StoredSafe lookup terms from the
// command line, for host frameworks that shell out instead of linking the
// library. Each term's value is printed on its own line, in input order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hengadev/storedsafe"
)

const version = "1.0.0"

func main() {
	fs := flag.NewFlagSet("storedsafe-lookup", flag.ExitOnError)
	varsPath := fs.String("vars", "", "YAML file with framework variables (storedsafe_server, storedsafe_skip_verify, ...)")
	envFile := fs.String("env-file", "", "load environment variables from this file before resolving configuration")
	verbose := fs.Bool("v", false, "print diagnostic trace output to stderr")
	refreshTimeout := fs.Duration("refresh-timeout", 0, "maximum run time for the token update script (0 = unlimited)")
	lockMaxWait := fs.Duration("lock-max-wait", 0, "maximum wait for the refresh lock (0 = wait forever)")
	showVersion := fs.Bool("version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <objectid>/<fieldname> ...\n\nOptions:\n", fs.Name())
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("storedsafe-lookup %s\n", version)
		return
	}

	terms := fs.Args()
	if len(terms) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fatal(fmt.Errorf("load env file %s: %w", *envFile, err))
		}
	}

	vars, err := loadVars(*varsPath)
	if err != nil {
		fatal(err)
	}

	opts := []storedsafe.Option{
		storedsafe.WithRefreshTimeout(*refreshTimeout),
		storedsafe.WithLockMaxWait(*lockMaxWait),
	}
	if *verbose {
		opts = append(opts, storedsafe.WithObservabilityHook(newTraceHook(os.Stderr)))
	}

	values, err := storedsafe.Run(context.Background(), terms, vars, opts...)
	if err != nil {
		fatal(err)
	}
	for _, v := range values {
		fmt.Println(v)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "storedsafe-lookup: %v\n", err)
	os.Exit(1)
}
