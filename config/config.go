// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidRejectedCacheSize = errors.New("rejected cache size must be positive")
	ErrInvalidValidationWorkers = errors.New("validation workers must be positive")

	Default = Config{
		RetainedDepth:     2160,
		RejectedCacheSize: 1024,
		ValidationWorkers: 4,
	}
)

// Config contains the user-configurable parameters of the block
// orchestration layer. Protocol parameters are not configured here, they
// come from block0 and update proposals.
type Config struct {
	// RetainedDepth is how many blocks behind the tip states are kept for
	// forks to build on.
	RetainedDepth     uint32 `json:"retained-depth"`
	RejectedCacheSize int    `json:"rejected-cache-size"`
	// ValidationWorkers bounds how many blocks are validated at once.
	ValidationWorkers int `json:"validation-workers"`
}

// GetConfig returns a Config from the provided json encoded bytes. If a
// configuration is not provided in the bytes, the default value is set. If
// empty bytes are provided, the default config is returned.
func GetConfig(b []byte) (*Config, error) {
	c := Default

	// An empty slice is invalid json, so handle that as a special case.
	if len(b) == 0 {
		return &c, nil
	}

	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, c.Verify()
}

func (c *Config) Verify() error {
	switch {
	case c.RejectedCacheSize <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidRejectedCacheSize, c.RejectedCacheSize)
	case c.ValidationWorkers <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidValidationWorkers, c.ValidationWorkers)
	default:
		return nil
	}
}
