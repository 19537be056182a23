package out

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trackhost/internal/modules/plugin/adapter/out/rpc"
	"trackhost/internal/modules/plugin/domain"
)

// Scope is the dependency resolution arena of one plugin directory. It is
// built from the manifest next to the binary and never shared between plugins.
type Scope struct {
	dir          string
	native       map[string]string
	managed      map[string]string
	nativeOrder  []string
	managedOrder []string
	unresolved   []string
}

// OpenScope reads dir/manifestName. A missing manifest yields an empty scope.
// Entries whose path does not exist are recorded as unresolved, not rejected.
func OpenScope(dir, manifestName string) (*Scope, error) {
	scope := &Scope{dir: dir, native: map[string]string{}, managed: map[string]string{}}
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return scope, nil
		}
		return nil, fmt.Errorf("read dependency manifest: %w", err)
	}
	var manifest domain.DependencyManifest
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode dependency manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	for _, dep := range manifest.Dependencies {
		path := filepath.Join(dir, dep.Path)
		if _, err := os.Stat(path); err != nil {
			scope.unresolved = append(scope.unresolved, dep.Name)
			continue
		}
		switch dep.Kind {
		case domain.DependencyNative:
			scope.native[dep.Name] = path
			scope.nativeOrder = append(scope.nativeOrder, dep.Name)
		case domain.DependencyManaged:
			scope.managed[dep.Name] = path
			scope.managedOrder = append(scope.managedOrder, dep.Name)
		}
	}
	return scope, nil
}

func (s *Scope) Dir() string {
	return s.dir
}

func (s *Scope) ResolveNative(name string) (string, bool) {
	path, ok := s.native[name]
	return path, ok
}

func (s *Scope) ResolveManaged(name string) (string, bool) {
	path, ok := s.managed[name]
	return path, ok
}

// Resolved lists the manifest entries found on disk, natives first.
func (s *Scope) Resolved() []string {
	return append(append([]string(nil), s.nativeOrder...), s.managedOrder...)
}

func (s *Scope) Unresolved() []string {
	return append([]string(nil), s.unresolved...)
}

// Environ derives the plugin process environment from base. Native
// dependency directories go in front of the platform library search path so
// they win over same-named host libraries.
func (s *Scope) Environ(base []string) []string {
	overrides := map[string]string{rpc.EnvPluginDir: s.dir}
	if len(s.nativeOrder) > 0 {
		key := librarySearchVar()
		dirs := s.nativeDirs()
		if existing := lookupEnv(base, key); existing != "" {
			dirs = append(dirs, existing)
		}
		overrides[key] = strings.Join(dirs, string(os.PathListSeparator))
	}
	if len(s.managedOrder) > 0 {
		managed := make(map[string]string, len(s.managedOrder))
		for _, name := range s.managedOrder {
			if path, ok := s.ResolveManaged(name); ok {
				managed[name] = path
			}
		}
		overrides[rpc.EnvModulePath] = rpc.EncodeModulePath(managed, s.managedOrder)
	}

	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, key+"="+overrides[key])
	}
	return out
}

func (s *Scope) nativeDirs() []string {
	seen := map[string]struct{}{}
	dirs := make([]string, 0, len(s.nativeOrder))
	for _, name := range s.nativeOrder {
		path, ok := s.ResolveNative(name)
		if !ok {
			continue
		}
		dir := path
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			dir = filepath.Dir(path)
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func librarySearchVar() string {
	switch runtime.GOOS {
	case "windows":
		return "PATH"
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

func lookupEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}
