package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/cli"
	"lab47.dev/relinfo/pkg/cmd"
)

// The CLI only ever asks about amd64 server disk images.
const (
	defaultArch = "amd64"
	defaultFile = "disk1.img"
	infoTag     = "sha256"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	c := cli.NewCLI("relinfo", "0.1.0")
	c.Args = legacyArgs(os.Args[1:])
	c.Commands = map[string]cli.CommandFactory{
		"versions": func() (cli.Command, error) {
			return cmd.New(
				"versions",
				"List supported versions for "+defaultArch,
				versionsF,
			), nil
		},
		"checksum": func() (cli.Command, error) {
			return cmd.New(
				"checksum",
				"Print the sha256 of "+defaultFile+" for a version",
				checksumF,
			), nil
		},
		"lts": func() (cli.Command, error) {
			return cmd.New(
				"lts",
				"Print the LTS release with the longest support for "+defaultArch,
				ltsF,
			), nil
		},
		"query": func() (cli.Command, error) {
			return &queryCommand{}, nil
		},
		"fetch-index": func() (cli.Command, error) {
			return cmd.New(
				"fetch-index",
				"Download the release index to a local directory",
				fetchIndexF,
			), nil
		},
		"env": func() (cli.Command, error) {
			return cmd.New(
				"env",
				"Output configuration and host information",
				envF,
			), nil
		},
		"debug": func() (cli.Command, error) {
			return cmd.New(
				"debug",
				"Dump the loaded release catalog",
				debugF,
			), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

// legacyArgs routes the flag style invocation (relinfo --versions
// --checksum NAME --ltsrelease) to the query command.
func legacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	switch args[0] {
	case "-h", "-help", "--help", "-v", "-version", "--version":
		return args
	}

	if strings.HasPrefix(args[0], "-") {
		return append([]string{"query"}, args...)
	}

	return args
}
