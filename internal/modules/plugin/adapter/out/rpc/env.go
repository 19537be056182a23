package rpc

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables the loader sets for every plugin process.
const (
	EnvPluginDir  = "TRACKHOST_PLUGIN_DIR"
	EnvModulePath = "TRACKHOST_MODULE_PATH"
)

// ResolveManaged looks up a managed dependency exported by the host for this
// plugin process. Entries are name=path pairs separated by the OS list separator.
func ResolveManaged(name string) (string, bool) {
	for _, entry := range filepath.SplitList(os.Getenv(EnvModulePath)) {
		key, value, ok := strings.Cut(entry, "=")
		if ok && key == name {
			return value, true
		}
	}
	return "", false
}

// EncodeModulePath is the inverse of ResolveManaged.
func EncodeModulePath(entries map[string]string, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+entries[name])
	}
	return strings.Join(parts, string(os.PathListSeparator))
}
