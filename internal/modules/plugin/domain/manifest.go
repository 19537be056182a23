package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

type DependencyKind string

const (
	DependencyNative  DependencyKind = "native"
	DependencyManaged DependencyKind = "managed"
)

// Dependency is one entry of the manifest shipped next to a plugin binary.
type Dependency struct {
	Name string         `yaml:"name"`
	Path string         `yaml:"path"`
	Kind DependencyKind `yaml:"kind"`
}

type DependencyManifest struct {
	Dependencies []Dependency `yaml:"dependencies"`
}

func (m DependencyManifest) Validate() error {
	seen := map[string]struct{}{}
	for _, dep := range m.Dependencies {
		if strings.TrimSpace(dep.Name) == "" {
			return fmt.Errorf("dependency name is required")
		}
		if strings.TrimSpace(dep.Path) == "" {
			return fmt.Errorf("dependency %s: path is required", dep.Name)
		}
		if filepath.IsAbs(dep.Path) {
			return fmt.Errorf("dependency %s: path must be relative to the plugin directory", dep.Name)
		}
		if strings.HasPrefix(filepath.Clean(dep.Path), "..") {
			return fmt.Errorf("dependency %s: path escapes the plugin directory", dep.Name)
		}
		switch dep.Kind {
		case DependencyNative, DependencyManaged:
		default:
			return fmt.Errorf("dependency %s: unknown kind %q", dep.Name, dep.Kind)
		}
		key := string(dep.Kind) + "/" + dep.Name
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate dependency: %s", dep.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
