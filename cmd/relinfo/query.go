package main

import (
	"bytes"
	"fmt"

	"github.com/morikuni/aec"
	"github.com/spf13/pflag"
	"lab47.dev/relinfo/pkg/cmd"
)

// queryCommand answers any combination of the three queries in one run,
// loading the index only once.
type queryCommand struct {
	versions bool
	checksum string
	lts      bool
	opts     QueryOptions
}

func (q *queryCommand) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&q.versions, "versions", false, "list supported versions for "+defaultArch)
	fs.StringVar(&q.checksum, "checksum", "", "print the sha256 of "+defaultFile+" for the named version")
	fs.BoolVar(&q.lts, "ltsrelease", false, "print the LTS release with the longest support")
	fs.BoolVar(&q.opts.ConsoleLog, "consolelog", false, "echo log output to stderr")
	fs.StringVar(&q.opts.File, "file", "", "read the release index from a local file")
	fs.BoolVar(&q.opts.Trace, "trace", false, "log in trace mode")

	return fs
}

func (q *queryCommand) Help() string {
	var buf bytes.Buffer

	fs := q.flags()
	fs.SetOutput(&buf)

	fmt.Fprintln(&buf, "Usage: relinfo [query] [--versions] [--checksum VERSION] [--ltsrelease]")
	fmt.Fprintln(&buf)
	fs.PrintDefaults()

	return buf.String()
}

func (q *queryCommand) Synopsis() string {
	return "Run several queries against one download of the index"
}

func (q *queryCommand) Run(args []string) int {
	fs := q.flags()

	err := fs.Parse(args)
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}

		return 1
	}

	if !q.versions && !q.lts && q.checksum == "" {
		fmt.Fprintln(stderr, q.Help())
		return 1
	}

	ctx, cancel := cmd.Context(stderr)
	defer cancel()

	s, err := openSession(ctx, q.opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s %+v\n", aec.RedF.Apply("! Error:"), err)
		return 1
	}

	defer s.Close()

	status := 0

	report := func(err error) {
		fmt.Fprintf(stderr, "%s %v\n", aec.RedF.Apply("! Error:"), err)
		status = 1
	}

	if q.versions {
		versions, err := s.fetcher.SupportedVersions(defaultArch)
		if err != nil {
			report(err)
		} else {
			fmt.Fprintln(stdout, aec.Bold.Apply("Supported versions:"))

			for _, v := range versions {
				fmt.Fprintf(stdout, "  %s\n", v)
			}
		}
	}

	if q.checksum != "" {
		sum, err := s.fetcher.PackageFileInfo(q.checksum, defaultFile, infoTag)
		if err != nil {
			report(err)
		} else {
			fmt.Fprintf(stdout, "%s %s\n", aec.Bold.Apply("Checksum:"), sum)
		}
	}

	if q.lts {
		lts, err := s.fetcher.CurrentLTSRelease(defaultArch)
		if err != nil {
			report(err)
		} else {
			fmt.Fprintf(stdout, "%s %s\n", aec.Bold.Apply("Current LTS:"), lts)
		}
	}

	return status
}
