package out

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	hostin "trackhost/internal/modules/host/port/in"
	"trackhost/internal/modules/plugin/adapter/out/rpc"
	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

const (
	defaultStartTimeout = 5 * time.Second
	defaultCallTimeout  = 2 * time.Second
)

type LoaderOptions struct {
	DependencyManifest string
	StartTimeout       time.Duration
	CallTimeout        time.Duration
	Logger             hclog.Logger
	// Host is served to plugins on OnLoad. Nil leaves plugins without callbacks.
	Host hostin.PluginHost
}

// IsolatedLoader runs every plugin binary as its own go-plugin process.
type IsolatedLoader struct {
	opts LoaderOptions
}

func NewIsolatedLoader(opts LoaderOptions) *IsolatedLoader {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultStartTimeout
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.DependencyManifest == "" {
		opts.DependencyManifest = "dependencies.yaml"
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &IsolatedLoader{opts: opts}
}

func (l *IsolatedLoader) Load(ctx context.Context, path string) (pluginout.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewLoadError(domain.OutcomeFileSystemError, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.NewLoadError(domain.OutcomeFileSystemError, path, fmt.Errorf("not a regular file"))
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return nil, domain.NewLoadError(domain.OutcomeFileSystemError, path, fmt.Errorf("not executable"))
	}

	dir := filepath.Dir(path)
	scope, err := OpenScope(dir, l.opts.DependencyManifest)
	if err != nil {
		return nil, domain.NewLoadError(domain.OutcomeMissingDependency, path, err)
	}
	logger := l.opts.Logger.Named(filepath.Base(dir))
	if unresolved := scope.Unresolved(); len(unresolved) > 0 {
		logger.Warn("plugin dependencies not found on disk", "path", path, "dependencies", strings.Join(unresolved, ","))
	}
	if resolved := scope.Resolved(); len(resolved) > 0 {
		logger.Debug("plugin dependencies resolved in scope", "path", path, "dependencies", strings.Join(resolved, ","))
	}

	cmd := exec.Command(path)
	cmd.Dir = dir
	cmd.Env = scope.Environ(os.Environ())
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  rpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          rpc.ClientPluginMap(),
		Cmd:              cmd,
		Managed:          true,
		SkipHostEnv:      true,
		StartTimeout:     l.opts.StartTimeout,
		Logger:           logger,
	})
	protocol, err := client.Client()
	if err != nil {
		client.Kill()
		if unresolved := scope.Unresolved(); len(unresolved) > 0 {
			return nil, domain.NewLoadError(domain.OutcomeMissingDependency, path, err).
				WithContext("unresolved", strings.Join(unresolved, ","))
		}
		return nil, domain.NewLoadError(domain.OutcomeCompositionRejected, path, fmt.Errorf("start plugin client: %w", err))
	}
	return &processModule{
		path:        path,
		client:      client,
		protocol:    protocol,
		scope:       scope,
		host:        l.opts.Host,
		callTimeout: l.opts.CallTimeout,
	}, nil
}

// CleanupProcesses kills every plugin process still running.
func CleanupProcesses() {
	plugin.CleanupClients()
}

type processModule struct {
	path        string
	client      *plugin.Client
	protocol    plugin.ClientProtocol
	scope       *Scope
	host        hostin.PluginHost
	callTimeout time.Duration
	closeOnce   sync.Once
}

func (m *processModule) Path() string {
	return m.path
}

func (m *processModule) UnresolvedDependencies() []string {
	return m.scope.Unresolved()
}

func (m *processModule) Metadata(ctx context.Context) (domain.Metadata, error) {
	raw, err := m.protocol.Dispense(rpc.MetadataPluginKey)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("dispense metadata: %w", err)
	}
	client, ok := raw.(*rpc.MetadataClient)
	if !ok {
		return domain.Metadata{}, fmt.Errorf("metadata client type mismatch")
	}
	callCtx, cancel := callContext(ctx, m.callTimeout)
	defer cancel()
	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	return domain.Metadata{
		GUID:       meta.GUID,
		Name:       meta.Name,
		Publisher:  meta.Publisher,
		Website:    meta.Website,
		UpdateURI:  meta.UpdateURI,
		Version:    meta.Version,
		APIVersion: meta.APIVersion,
		Exports:    meta.Exports,
	}, nil
}

func (m *processModule) Device(_ context.Context, owner string) (pluginout.DeviceContract, error) {
	raw, err := m.protocol.Dispense(rpc.DevicePluginKey)
	if err != nil {
		return nil, fmt.Errorf("dispense device: %w", err)
	}
	client, ok := raw.(*rpc.DeviceClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractMissing, domain.ContractDevice)
	}
	client.Host = newHostBridge(m.host, owner)
	return client, nil
}

func (m *processModule) Service(_ context.Context, owner string) (pluginout.ServiceContract, error) {
	raw, err := m.protocol.Dispense(rpc.ServicePluginKey)
	if err != nil {
		return nil, fmt.Errorf("dispense service: %w", err)
	}
	client, ok := raw.(*rpc.ServiceClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractMissing, domain.ContractService)
	}
	client.Host = newHostBridge(m.host, owner)
	return client, nil
}

func (m *processModule) Close() error {
	m.closeOnce.Do(m.client.Kill)
	return nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
