// File: control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed runtime configuration. Unlike transports that reload
// dynamically, the engine's shape (cores, policy, backend) is fixed
// for the lifetime of a runtime, so the config feeds the builder once.

package control

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-async/api"
)

// Config mirrors the RuntimeBuilder surface.
type Config struct {
	// Cores is the number of scheduler threads; 0 means one per CPU.
	Cores int `toml:"cores"`
	// Policy is "thread-per-core" (default) or "work-stealing".
	Policy string `toml:"policy"`
	// Backend is "auto" (default), "io_uring", "epoll" or "kqueue".
	Backend string `toml:"backend"`
	// Pinning binds each core thread to one logical CPU.
	Pinning bool `toml:"pinning"`
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("control: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown policy and backend names.
func (c *Config) Validate() error {
	switch c.Policy {
	case "", "thread-per-core", "work-stealing":
	default:
		return fmt.Errorf("control: unknown policy %q: %w", c.Policy, api.ErrInvalidArgument)
	}
	switch c.Backend {
	case "", "auto", "io_uring", "epoll", "kqueue":
	default:
		return fmt.Errorf("control: unknown backend %q: %w", c.Backend, api.ErrInvalidArgument)
	}
	if c.Cores < 0 {
		return fmt.Errorf("control: negative core count: %w", api.ErrInvalidArgument)
	}
	return nil
}

// SchedPolicy maps the textual policy to the api constant.
func (c *Config) SchedPolicy() api.Policy {
	if c.Policy == "work-stealing" {
		return api.WorkStealing
	}
	return api.ThreadPerCore
}

// DriverBackend maps the textual backend to the api constant.
func (c *Config) DriverBackend() api.Backend {
	switch c.Backend {
	case "io_uring":
		return api.BackendUring
	case "epoll":
		return api.BackendEpoll
	case "kqueue":
		return api.BackendKqueue
	}
	return api.BackendAuto
}
