// Package config loads the resource grid layout with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentic-research/resgrid/api"
	"github.com/agentic-research/resgrid/internal/modules"
)

const (
	// FileName is the config file name without extension.
	FileName = "resgrid"
	// FileType is the config file format.
	FileType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. RESGRID_DEFINITIONS.
	EnvPrefix = "RESGRID"
)

var ErrInvalidLayout = errors.New("invalid layout")

// Defaults returns the layout used for keys missing from every source.
func Defaults() api.Layout {
	return api.Layout{
		Origins:            []api.OriginSpec{},
		Modules:            []string{},
		DefinitionSelector: modules.DefaultModuleSelector,
	}
}

// Load reads the layout from path, or from resgrid.yaml in the working
// directory when path is empty. A missing default file is not an error;
// a missing explicit file is. Environment variables override file values.
func Load(path string) (*api.Layout, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("origins", defaults.Origins)
	v.SetDefault("modules", defaults.Modules)
	v.SetDefault("definitions", defaults.Definitions)
	v.SetDefault("definition_selector", defaults.DefinitionSelector)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType(FileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var layout api.Layout
	if err := v.Unmarshal(&layout); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&layout); err != nil {
		return nil, err
	}
	return &layout, nil
}

// Validate checks that origins are named uniquely, have a known kind and a
// path, and that at most one repository origin is configured.
func Validate(l *api.Layout) error {
	if len(l.Origins) == 0 {
		return fmt.Errorf("%w: no origins configured", ErrInvalidLayout)
	}
	seen := make(map[string]bool, len(l.Origins))
	repos := 0
	for i, o := range l.Origins {
		if o.Name == "" {
			return fmt.Errorf("%w: origin %d has no name", ErrInvalidLayout, i)
		}
		if seen[o.Name] {
			return fmt.Errorf("%w: duplicate origin %q", ErrInvalidLayout, o.Name)
		}
		seen[o.Name] = true

		switch o.Kind {
		case api.OriginFile, api.OriginClasspath:
		case api.OriginRepository:
			repos++
		default:
			return fmt.Errorf("%w: origin %q has unknown kind %q", ErrInvalidLayout, o.Name, o.Kind)
		}
		if o.Path == "" {
			return fmt.Errorf("%w: origin %q has no path", ErrInvalidLayout, o.Name)
		}
	}
	if repos > 1 {
		return fmt.Errorf("%w: %d repository origins, at most one is supported", ErrInvalidLayout, repos)
	}
	return nil
}
