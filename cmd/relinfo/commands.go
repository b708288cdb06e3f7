package main

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/relinfo/pkg/config"
	"lab47.dev/relinfo/pkg/fetch"
	"lab47.dev/relinfo/pkg/logging"
	"lab47.dev/relinfo/pkg/releases"
)

type QueryOptions struct {
	ConsoleLog bool   `long:"consolelog" description:"echo log output to stderr"`
	File       string `long:"file" description:"read the release index from a local file instead of downloading it"`
	Trace      bool   `long:"trace" description:"log in trace mode"`
}

type session struct {
	cfg     *config.Config
	L       *logging.Logger
	fetcher *releases.Fetcher
}

func (s *session) Close() {
	s.L.Close()
}

func openLog(cfg *config.Config, console, trace bool) *logging.Logger {
	opts := logging.Options{
		Name:  "relinfo",
		Level: hclog.Info,
		Path:  cfg.LogPath,
	}

	if trace {
		opts.Level = hclog.Trace
	}

	if console {
		opts.Console = stderr
	}

	L, err := logging.New(opts)
	if err == nil {
		return L
	}

	// Keep going without the file, but make sure the failure is visible.
	opts.Path = ""
	opts.Console = stderr

	L, _ = logging.New(opts)
	L.Warn("unable to open log file, logging to console", "path", cfg.LogPath, "error", err)

	return L
}

// openSession loads configuration, opens the log and loads the release
// index, either from the configured host or from opts.File.
func openSession(ctx context.Context, opts QueryOptions) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg: cfg,
		L:   openLog(cfg, opts.ConsoleLog, opts.Trace),
	}

	if opts.File != "" {
		s.fetcher, err = releases.LoadFile(ctx, s.L, opts.File, cfg.ChunkSize)
		if err != nil {
			s.Close()
			return nil, err
		}

		return s, nil
	}

	client := &fetch.Client{ChunkSize: cfg.ChunkSize}
	client.SetLogger(s.L.Named("fetch"))

	s.fetcher = releases.NewFetcher(cfg.Host, cfg.Path, client)
	s.fetcher.SetLogger(s.L)

	err = s.fetcher.Load(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func versionsF(ctx context.Context, opts struct {
	QueryOptions
}) error {
	s, err := openSession(ctx, opts.QueryOptions)
	if err != nil {
		return err
	}

	defer s.Close()

	versions, err := s.fetcher.SupportedVersions(defaultArch)
	if err != nil {
		return err
	}

	for _, v := range versions {
		fmt.Fprintln(stdout, v)
	}

	return nil
}

func checksumF(ctx context.Context, opts struct {
	QueryOptions

	Pos struct {
		Version string `positional-arg-name:"version" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}) error {
	s, err := openSession(ctx, opts.QueryOptions)
	if err != nil {
		return err
	}

	defer s.Close()

	sum, err := s.fetcher.PackageFileInfo(opts.Pos.Version, defaultFile, infoTag)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, sum)

	return nil
}

func ltsF(ctx context.Context, opts struct {
	QueryOptions
}) error {
	s, err := openSession(ctx, opts.QueryOptions)
	if err != nil {
		return err
	}

	defer s.Close()

	lts, err := s.fetcher.CurrentLTSRelease(defaultArch)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, lts)

	return nil
}

func fetchIndexF(ctx context.Context, opts struct {
	ConsoleLog bool `long:"consolelog" description:"echo log output to stderr"`

	Pos struct {
		Dest string `positional-arg-name:"dest" description:"directory to save the index in (default: index-dir from config)"`
	} `positional-args:"yes"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	L := openLog(cfg, opts.ConsoleLog, false)
	defer L.Close()

	dir := &releases.IndexDir{Path: cfg.IndexDir}
	dir.SetLogger(L)

	if opts.Pos.Dest != "" {
		dir.Path = opts.Pos.Dest
	}

	path, err := dir.Download(ctx, cfg.URL())
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, path)

	return nil
}

func envF(ctx context.Context, opts struct{}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Config File: %s\n", cfg.ConfigPath())
	fmt.Fprintf(stdout, "Index URL: %s\n", cfg.URL())
	fmt.Fprintf(stdout, "Index Dir: %s\n", cfg.IndexDir)
	fmt.Fprintf(stdout, "Log File: %s\n", cfg.LogPath)
	fmt.Fprintf(stdout, "Chunk Size: %d\n", cfg.ChunkSize)

	osName, osVersion, arch, err := config.Platform()
	if err != nil {
		return errors.Wrapf(err, "reading host platform")
	}

	fmt.Fprintf(stdout, "Host: %s %s (%s)\n", osName, osVersion, arch)

	return nil
}

func debugF(ctx context.Context, opts struct {
	QueryOptions
}) error {
	s, err := openSession(ctx, opts.QueryOptions)
	if err != nil {
		return err
	}

	defer s.Close()

	spew.Fdump(stdout, s.fetcher.Catalog().Products())

	return nil
}
