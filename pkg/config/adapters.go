package config

import (
	"fmt"

	"github.com/attrfs/attrfs/pkg/adapter"
	"github.com/attrfs/attrfs/pkg/adapter/fuse"
)

// CreateAdapters creates all enabled host binding adapters from the
// configuration.
//
// Returns the enabled adapters ready to be added to the server, or an
// error when none is enabled.
func CreateAdapters(cfg *Config) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.FUSE.Enabled {
		adapters = append(adapters, fuse.New(cfg.Adapters.FUSE))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
