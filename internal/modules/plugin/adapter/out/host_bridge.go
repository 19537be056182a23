package out

import (
	"context"

	hostdomain "trackhost/internal/modules/host/domain"
	hostin "trackhost/internal/modules/host/port/in"
	"trackhost/internal/modules/plugin/adapter/out/rpc"
)

// hostBridge serves the host facade to one plugin, filling in its guid
// wherever the plugin left the owner out.
type hostBridge struct {
	host  hostin.PluginHost
	owner string
}

func newHostBridge(host hostin.PluginHost, owner string) rpc.HostServer {
	if host == nil {
		return nil
	}
	return &hostBridge{host: host, owner: owner}
}

func (b *hostBridge) Log(ctx context.Context, severity hostdomain.LogSeverity, message string) error {
	return b.host.Log(ctx, b.owner, severity, message)
}

func (b *hostBridge) PlaySound(ctx context.Context, sound hostdomain.Sound) error {
	return b.host.PlaySound(ctx, b.owner, sound)
}

func (b *hostBridge) DisplayToast(ctx context.Context, header, text string) error {
	return b.host.DisplayToast(ctx, b.owner, header, text)
}

func (b *hostBridge) RequestLocalizedString(ctx context.Context, key, owner string) (string, error) {
	return b.host.RequestLocalizedString(ctx, key, b.ownerOr(owner)), nil
}

func (b *hostBridge) RefreshLocalizationResourceRoot(ctx context.Context, path, owner string) error {
	return b.host.RefreshLocalizationResourceRoot(ctx, path, b.ownerOr(owner))
}

func (b *hostBridge) AppJointPoses(ctx context.Context) ([]hostdomain.JointPose, error) {
	return b.host.AppJointPoses(ctx), nil
}

func (b *hostBridge) RequestExit(ctx context.Context, message, requester string, fatal bool) error {
	return b.host.RequestExit(ctx, hostdomain.ExitRequest{
		Message:   message,
		Requester: b.ownerOr(requester),
		Fatal:     fatal,
	})
}

func (b *hostBridge) ownerOr(owner string) string {
	if owner == "" {
		return b.owner
	}
	return owner
}
