package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/attrfs/attrfs/pkg/fs"
	"github.com/attrfs/attrfs/pkg/object"
)

// SeedConfig describes the object tree published when the daemon starts.
//
// Seeded objects carry static attribute values backed by an in-memory
// accessor; writes through the mount update the stored value and readers
// see it on their next fill. Real producers register their own objects
// through the fs package API instead.
type SeedConfig struct {
	// Objects lists the objects to publish, parents before children.
	Objects []SeedObjectConfig `mapstructure:"objects" validate:"dive"`
}

// SeedObjectConfig describes one seeded object.
type SeedObjectConfig struct {
	// Path is the slash-separated object path under the tree root,
	// e.g. "devices/cpu0". The parent object must be declared earlier.
	Path string `mapstructure:"path" validate:"required"`

	// Attributes maps attribute names to either a plain string value or
	// a section with value and mode keys. Plain values get mode 0644.
	Attributes map[string]any `mapstructure:"attributes"`

	// Links maps link names to target object paths.
	Links map[string]string `mapstructure:"links"`
}

// seedAttribute is the structured form of an attribute section.
type seedAttribute struct {
	Value string `mapstructure:"value"`
	Mode  uint32 `mapstructure:"mode" validate:"lte=511"`
}

func applySeedDefaults(cfg *SeedConfig) {
	for i := range cfg.Objects {
		cfg.Objects[i].Path = strings.Trim(cfg.Objects[i].Path, "/")
	}
}

// BuildSeed publishes the seeded object tree into the filesystem.
// Objects are created in declaration order, then links once every target
// directory exists.
func BuildSeed(fsys *fs.Filesystem, cfg *SeedConfig) error {
	objects := make(map[string]*object.Object, len(cfg.Objects))

	for _, spec := range cfg.Objects {
		var parent *object.Object
		if pp := parentPath(spec.Path); pp != "" {
			parent = objects[pp]
			if parent == nil {
				return fmt.Errorf("seed: parent of %q not built", spec.Path)
			}
		}

		name := spec.Path
		if idx := strings.LastIndex(spec.Path, "/"); idx >= 0 {
			name = spec.Path[idx+1:]
		}

		attrs, values, err := decodeAttributes(spec)
		if err != nil {
			return err
		}

		o := object.New(name, parent)
		o.Ops = object.NewStaticOps(values)
		if err := fsys.CreateDir(o); err != nil {
			return fmt.Errorf("seed: create directory %q: %w", spec.Path, err)
		}
		for _, attr := range attrs {
			if err := fsys.CreateFile(o, attr); err != nil {
				return fmt.Errorf("seed: create attribute %s/%s: %w", spec.Path, attr.Name, err)
			}
		}
		objects[spec.Path] = o
	}

	for _, spec := range cfg.Objects {
		names := make([]string, 0, len(spec.Links))
		for name := range spec.Links {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			target := objects[strings.Trim(spec.Links[name], "/")]
			if target == nil {
				return fmt.Errorf("seed: link %s/%s targets unknown object", spec.Path, name)
			}
			if err := fsys.CreateLink(objects[spec.Path], target, name); err != nil {
				return fmt.Errorf("seed: create link %s/%s: %w", spec.Path, name, err)
			}
		}
	}

	return nil
}

// decodeAttributes turns the free-form attributes section into attribute
// descriptors and their initial values. Attribute creation order follows
// the sorted names so seeded directories enumerate deterministically.
func decodeAttributes(spec SeedObjectConfig) ([]*object.Attribute, map[string]string, error) {
	names := make([]string, 0, len(spec.Attributes))
	for name := range spec.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]*object.Attribute, 0, len(names))
	values := make(map[string]string, len(names))
	for _, name := range names {
		raw := spec.Attributes[name]
		switch v := raw.(type) {
		case string:
			attrs = append(attrs, &object.Attribute{Name: name, Mode: 0644})
			values[name] = v
		default:
			var decoded seedAttribute
			if err := mapstructure.Decode(raw, &decoded); err != nil {
				return nil, nil, fmt.Errorf("seed: attribute %s/%s: %w", spec.Path, name, err)
			}
			if decoded.Mode == 0 {
				decoded.Mode = 0644
			}
			attrs = append(attrs, &object.Attribute{Name: name, Mode: decoded.Mode})
			values[name] = decoded.Value
		}
	}
	return attrs, values, nil
}
