package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
	"trackhost/internal/platform/clock"
	"trackhost/internal/platform/metrics"
)

type DiscoveryOptions struct {
	FilePattern        string
	PluginPrefix       string
	DependencyManifest string
	HostOwnedFiles     []string
	CheckTimeout       time.Duration
}

// Discovered is one recorded discovery attempt. Successful attempts carry
// the open module and the contract that matched.
type Discovered struct {
	Candidate domain.Candidate
	Module    pluginout.Module
	Device    pluginout.DeviceContract
	Service   pluginout.ServiceContract
}

type Discoverer struct {
	loader  pluginout.Loader
	opts    DiscoveryOptions
	clock   clock.Clock
	logger  hclog.Logger
	metrics *metrics.Metrics
}

func NewDiscoverer(loader pluginout.Loader, opts DiscoveryOptions, clk clock.Clock, logger hclog.Logger, m *metrics.Metrics) *Discoverer {
	if opts.FilePattern == "" {
		opts.FilePattern = "plugin*"
	}
	if opts.PluginPrefix == "" {
		opts.PluginPrefix = "plugin"
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCallTimeout
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Discoverer{loader: loader, opts: opts, clock: clk, logger: logger.Named("discoverer"), metrics: m}
}

// PluginDirectories expands plugin roots into the directories to scan: each
// existing root followed by its child directories in lexical order.
func PluginDirectories(roots []string) []string {
	seen := map[string]struct{}{}
	var dirs []string
	add := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		add(root)
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				add(filepath.Join(root, entry.Name()))
			}
		}
	}
	return dirs
}

// Discover scans every directory and returns all recorded attempts. It never
// fails: load errors become candidates or log lines.
func (d *Discoverer) Discover(ctx context.Context, scanID string, dirs []string) []Discovered {
	var out []Discovered
	for _, dir := range dirs {
		if ctx.Err() != nil {
			d.logger.Warn("discovery cancelled", "remaining_from", dir)
			break
		}
		out = append(out, d.scanDirectory(ctx, scanID, dir)...)
	}
	return out
}

func (d *Discoverer) scanDirectory(ctx context.Context, scanID, dir string) []Discovered {
	d.stripHostOwned(dir)
	files, err := d.pluginFiles(dir)
	if err != nil {
		d.logger.Warn("list plugin directory", "dir", dir, "error", err)
		return nil
	}
	var out []Discovered
	for _, path := range files {
		result, matched, err := d.attempt(ctx, scanID, path)
		if err != nil {
			if failure, hard := d.classify(result.Candidate, err); hard {
				out = append(out, Discovered{Candidate: failure})
			}
			continue
		}
		if matched {
			out = append(out, result)
			break
		}
	}
	return out
}

// stripHostOwned removes bundled copies of binaries the host provides itself.
func (d *Discoverer) stripHostOwned(dir string) {
	if len(d.opts.HostOwnedFiles) == 0 {
		return
	}
	owned := make(map[string]struct{}, len(d.opts.HostOwnedFiles))
	for _, name := range d.opts.HostOwnedFiles {
		owned[name] = struct{}{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		_, exact := owned[name]
		_, stem := owned[strings.TrimSuffix(name, filepath.Ext(name))]
		if !exact && !stem {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			d.logger.Warn("could not remove bundled host binary", "path", path, "error", err)
			continue
		}
		d.logger.Info("removed bundled host binary", "path", path)
	}
}

func (d *Discoverer) pluginFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == d.opts.DependencyManifest {
			continue
		}
		if ok, _ := filepath.Match(d.opts.FilePattern, name); !ok {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// attempt loads one file. It returns matched=false with a nil error when the
// module exports no supported contract.
func (d *Discoverer) attempt(ctx context.Context, scanID, path string) (result Discovered, matched bool, err error) {
	var module pluginout.Module
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("discovery panicked: %v", r)
		}
		if err != nil && module != nil {
			_ = module.Close()
		}
	}()

	candidate := domain.Candidate{
		ScanID:       scanID,
		Name:         filepath.Base(path),
		Path:         path,
		Directory:    filepath.Dir(path),
		Kind:         domain.KindUnknown,
		DiscoveredAt: d.clock.Now(),
	}
	result.Candidate = candidate

	module, err = d.loader.Load(ctx, path)
	if err != nil {
		return result, false, err
	}
	meta, err := module.Metadata(ctx)
	if err != nil {
		return result, false, contractError(module, path, err)
	}
	candidate.GUID = meta.GUID
	if meta.Name != "" {
		candidate.Name = meta.Name
	}
	candidate.Publisher = meta.Publisher
	candidate.Website = meta.Website
	candidate.UpdateURI = meta.UpdateURI
	candidate.Version = meta.Version
	candidate.APIVersion = meta.APIVersion
	candidate.UnresolvedDependencies = module.UnresolvedDependencies()
	result.Candidate = candidate

	if err := meta.Validate(); err != nil {
		return result, false, domain.NewLoadError(domain.OutcomeCompositionRejected, path, err)
	}
	kind := meta.Kind()
	if kind == domain.KindUnknown {
		_ = module.Close()
		module = nil
		d.logger.Debug("no supported contract exported", "path", path)
		return result, false, nil
	}
	candidate.Kind = kind
	result.Candidate = candidate
	if !domain.IsCompatibleAPIVersion(meta.APIVersion, domain.APIVersion) {
		return result, false, domain.NewLoadError(domain.OutcomeUnsupportedAPIVersion, path,
			fmt.Errorf("plugin api %s is not compatible with host api %s", meta.APIVersion, domain.APIVersion))
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.opts.CheckTimeout)
	defer cancel()
	switch kind {
	case domain.KindDevice:
		contract, err := module.Device(ctx, meta.GUID)
		if err != nil {
			return result, false, contractError(module, path, err)
		}
		if _, err := contract.Status(checkCtx); err != nil {
			return result, false, contractError(module, path, err)
		}
		result.Device = contract
	case domain.KindService:
		contract, err := module.Service(ctx, meta.GUID)
		if err != nil {
			return result, false, contractError(module, path, err)
		}
		if _, err := contract.Status(checkCtx); err != nil {
			return result, false, contractError(module, path, err)
		}
		result.Service = contract
	}

	candidate.Outcome = domain.OutcomeNoError
	result.Candidate = candidate
	result.Module = module
	d.metrics.DiscoveryAttempts.WithLabelValues(string(kind), string(domain.OutcomeNoError)).Inc()
	d.logger.Info("plugin loaded", "guid", meta.GUID, "kind", kind, "path", path)
	return result, true, nil
}

// classify applies the severity split. Files named like plugins are hard
// failures and get recorded; anything else is logged and dropped.
func (d *Discoverer) classify(candidate domain.Candidate, err error) (domain.Candidate, bool) {
	outcome := domain.OutcomeOf(err)
	d.metrics.DiscoveryAttempts.WithLabelValues(string(candidate.Kind), string(outcome)).Inc()
	if !domain.IsPluginFile(filepath.Base(candidate.Path), d.opts.PluginPrefix) {
		d.logger.Warn("ignoring incidental file that failed to load", "path", candidate.Path, "outcome", outcome, "error", err)
		return candidate, false
	}
	candidate.Outcome = outcome
	candidate.Severity = domain.SeverityError
	candidate.Error = err.Error()
	d.logger.Error("plugin failed to load", "path", candidate.Path, "outcome", outcome, "error", err)
	return candidate, true
}

// contractError types a failure that happened after the module started.
func contractError(module pluginout.Module, path string, err error) error {
	if domain.OutcomeOf(err) != domain.OutcomeUnknown {
		return err
	}
	if len(module.UnresolvedDependencies()) > 0 {
		return domain.NewLoadError(domain.OutcomeMissingDependency, path, err).
			WithContext("unresolved", strings.Join(module.UnresolvedDependencies(), ","))
	}
	return domain.NewLoadError(domain.OutcomeCompositionRejected, path, err)
}
