package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no override is given.
const DefaultAppName = "stageboard"

// Paths lists the per-user locations stageboard reads and writes.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	LogDir     string
}

// Options selects the app name and dev-mode suffix used for path resolution.
type Options struct {
	AppName string
	DevMode bool
}

// Host describes the machine paths are resolved for.
type Host struct {
	GOOS      string
	Getenv    func(string) string
	ConfigDir string
	DataDir   string
}

// baseOverrides lists, per OS, the env vars that replace the config and data bases.
var baseOverrides = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// Resolve resolves paths for the running host.
func Resolve(opts Options) (Paths, error) {
	host, err := CurrentHost()
	if err != nil {
		return Paths{}, err
	}
	return ResolveFor(host, opts)
}

// CurrentHost reads the base directories of the running OS.
func CurrentHost() (Host, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Host{}, fmt.Errorf("user config dir: %w", err)
	}
	host := Host{GOOS: runtime.GOOS, Getenv: os.Getenv, ConfigDir: configDir, DataDir: configDir}
	if host.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Host{}, fmt.Errorf("user home dir: %w", err)
		}
		host.DataDir = filepath.Join(home, ".local", "share")
	}
	return host, nil
}

// ResolveFor resolves paths on host. Dev mode appends `-dev` to the app name.
func ResolveFor(host Host, opts Options) (Paths, error) {
	if host.ConfigDir == "" || host.DataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}

	configBase, dataBase := host.ConfigDir, host.DataDir
	if keys, ok := baseOverrides[host.GOOS]; ok && host.Getenv != nil {
		if v := strings.TrimSpace(host.Getenv(keys[0])); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(host.Getenv(keys[1])); v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, name)
	return Paths{
		ConfigPath: filepath.Join(configBase, name, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, name+".db"),
		LogDir:     filepath.Join(dataDir, "logs"),
	}, nil
}
