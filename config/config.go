// Package config reads the optional TOML configuration file. Flags on the
// command line provide the same knobs; the file is for installations that
// start the server from an init system.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const (
	DefaultPort            = 69
	DefaultTimeoutMS       = 3000
	DefaultRetransmissions = 5
)

type Custom struct {
	Server struct {
		Host            string `toml:"host"`
		Port            int    `toml:"port"`
		RootDir         string `toml:"root-dir"`
		TimeoutMS       int    `toml:"timeout-ms"`
		Retransmissions int    `toml:"retransmissions"`
	} `toml:"server"`
	Loss struct {
		P float64 `toml:"p"`
		Q float64 `toml:"q"`
	} `toml:"loss"`
}

func Initialize(file string) (*Custom, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var config Custom
	err = toml.Unmarshal(f, &config)
	if err != nil {
		return nil, err
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Server.RootDir == "" {
		config.Server.RootDir = "./"
	}
	if config.Server.TimeoutMS == 0 {
		config.Server.TimeoutMS = DefaultTimeoutMS
	}
	if config.Server.Retransmissions == 0 {
		config.Server.Retransmissions = DefaultRetransmissions
	}
	if config.Loss.P < 0 || config.Loss.P > 1 || config.Loss.Q < 0 || config.Loss.Q > 1 {
		return nil, fmt.Errorf("loss probabilities must be within [0, 1]")
	}
	return &config, nil
}
