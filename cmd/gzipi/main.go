/*
gzipi indexes, repacks, searches and retrieves records from concatenated,
chunked gzip/zstd files addressed by an external sorted text index.
*/
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	flags "github.com/jessevdk/go-flags"
)

// globalOpts holds flags common to every subcommand.
var globalOpts struct {
	Verbose bool `short:"v" long:"verbose" description:"enable debug-level logging"`
}

var parser = flags.NewParser(&globalOpts, flags.Default&^flags.PrintErrors)

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if globalOpts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
}

func usage() {
	parser.WriteHelp(os.Stderr)
	os.Exit(1)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	parser.AddCommand("index", "Build an index over a chunked compressed file", "", &indexCommand{})
	parser.AddCommand("retrieve", "Retrieve records for a batch of keys", "", &retrieveCommand{})
	parser.AddCommand("search", "Retrieve the record for a single key", "", &searchCommand{})
	parser.AddCommand("repack", "Rewrite a compressed file as small, indexable frames", "", &repackCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		usage()
	}
}
