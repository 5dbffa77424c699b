// Package chtl_projectcfg loads the optional "chtl.toml" host configuration
// file that sits next to a CHTL entry point: the module search path and
// default output directory used by the CLI. This is distinct from the
// in-language [Configuration] block handled entirely by chtl_config.
package chtl_projectcfg

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the decoded shape of chtl.toml.
type Config struct {
	ModulePath string `toml:"module_path"`
	OutputDir  string `toml:"output_dir"`
}

func Default() Config {
	return Config{}
}

// Load looks for "chtl.toml" in dir and decodes it. A missing file is not an
// error: Load returns the zero Config so callers fall back to defaults.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, "chtl.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
