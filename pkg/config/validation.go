package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// Declarative constraints live in struct tags; rules spanning several
// fields are checked in validateCustomRules. Log level normalization
// happens in ApplyDefaults, so validation accepts both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.FUSE.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	// Seed object paths must be unique and parents must be declared
	// before their children, so directory creation can run in order.
	seen := make(map[string]bool)
	for i, obj := range cfg.Seed.Objects {
		path := strings.Trim(obj.Path, "/")
		if path == "" {
			return fmt.Errorf("seed.objects[%d]: path must not be empty", i)
		}
		if seen[path] {
			return fmt.Errorf("seed.objects[%d]: duplicate object path %q", i, path)
		}
		if parent := parentPath(path); parent != "" && !seen[parent] {
			return fmt.Errorf("seed.objects[%d]: parent %q must be declared before %q", i, parent, path)
		}
		seen[path] = true
	}

	// Link targets must name declared objects.
	for i, obj := range cfg.Seed.Objects {
		for name, target := range obj.Links {
			if !seen[strings.Trim(target, "/")] {
				return fmt.Errorf("seed.objects[%d]: link %q targets undeclared object %q", i, name, target)
			}
		}
	}

	return nil
}

// parentPath returns the path of the parent object, or "" for top-level
// objects.
func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
