package server

import (
	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
)

// LoadConfig reads a YAML file into a Config via go-ucfg, the same
// library packetd-packetd uses for its own server config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	uc, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return cfg, err
	}
	if err := uc.Unpack(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
