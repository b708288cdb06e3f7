package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
	"lab47.dev/relinfo/pkg/logging"
)

type Config struct {
	path string

	Host      string `json:"host" yaml:"host"`
	Path      string `json:"path" yaml:"path"`
	LogPath   string `json:"log-path" yaml:"log-path"`
	IndexDir  string `json:"index-dir" yaml:"index-dir"`
	ChunkSize int    `json:"chunk-size" yaml:"chunk-size"`
}

const (
	DefaultConfigPath = "~/.config/relinfo/config.json"
	DefaultHost       = "cloud-images.ubuntu.com"
	DefaultPath       = "/releases/streams/v1/com.ubuntu.cloud:released:download.json"
	DefaultIndexDir   = "~/.cache/relinfo"
	DefaultChunkSize  = 10 * 1024
)

// LoadConfig reads $RELINFO_CONFIG, or the default config file if it exists,
// then applies environment overrides. A missing default file is not an
// error.
func LoadConfig() (*Config, error) {
	if loc := os.Getenv("RELINFO_CONFIG"); loc != "" {
		return loadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return loadFile(path)
	}

	cfg := &Config{path: path}

	return finish(cfg)
}

func loadFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config")
	}

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	cfg.path = path

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if host := os.Getenv("RELINFO_HOST"); host != "" {
		cfg.Host = host
	}

	if path := os.Getenv("RELINFO_PATH"); path != "" {
		cfg.Path = path
	}

	if path := os.Getenv("RELINFO_LOG_PATH"); path != "" {
		cfg.LogPath = path
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	if cfg.LogPath == "" {
		cfg.LogPath = logging.DefaultPath()
	}

	if cfg.IndexDir == "" {
		cfg.IndexDir = DefaultIndexDir
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	var err error

	cfg.LogPath, err = homedir.Expand(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	cfg.IndexDir, err = homedir.Expand(cfg.IndexDir)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigPath is the file the configuration was, or would be, read from.
func (c *Config) ConfigPath() string {
	return c.path
}

// URL is the release index location.
func (c *Config) URL() string {
	return "https://" + c.Host + c.Path
}

// Platform reports the host os, its version and kernel architecture.
func Platform() (string, string, string, error) {
	osName, _, osVersion, err := host.PlatformInformation()
	if err != nil {
		return "", "", "", err
	}

	arch, err := host.KernelArch()
	if err != nil {
		return "", "", "", err
	}

	return osName, osVersion, arch, nil
}
