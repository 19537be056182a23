package rpc

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"

	hostdomain "trackhost/internal/modules/host/domain"
)

const hostServiceName = "trackhost.host.v1.PluginHost"

type LogRequest struct {
	Severity hostdomain.LogSeverity `json:"severity"`
	Message  string                 `json:"message"`
}

type SoundRequest struct {
	Sound hostdomain.Sound `json:"sound"`
}

type ToastRequest struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

type LocalizedStringRequest struct {
	Key   string `json:"key"`
	Owner string `json:"owner"`
}

type LocalizedStringReply struct {
	Value string `json:"value"`
}

type ResourceRootRequest struct {
	Path  string `json:"path"`
	Owner string `json:"owner"`
}

type JointPosesReply struct {
	Joints []hostdomain.JointPose `json:"joints"`
}

type ExitRequest struct {
	Message   string `json:"message"`
	Requester string `json:"requester"`
	Fatal     bool   `json:"fatal"`
}

// HostServer is implemented by the host for one plugin.
type HostServer interface {
	Log(ctx context.Context, severity hostdomain.LogSeverity, message string) error
	PlaySound(ctx context.Context, sound hostdomain.Sound) error
	DisplayToast(ctx context.Context, header, text string) error
	RequestLocalizedString(ctx context.Context, key, owner string) (string, error)
	RefreshLocalizationResourceRoot(ctx context.Context, path, owner string) error
	AppJointPoses(ctx context.Context) ([]hostdomain.JointPose, error)
	RequestExit(ctx context.Context, message, requester string, fatal bool) error
}

// HostClient is what plugins use to call back into the host.
type HostClient struct {
	conn *grpc.ClientConn
}

func (c *HostClient) Log(ctx context.Context, severity hostdomain.LogSeverity, message string) error {
	return invoke(ctx, c.conn, hostServiceName, "Log", &LogRequest{Severity: severity, Message: message}, &Empty{})
}

func (c *HostClient) PlaySound(ctx context.Context, sound hostdomain.Sound) error {
	return invoke(ctx, c.conn, hostServiceName, "PlaySound", &SoundRequest{Sound: sound}, &Empty{})
}

func (c *HostClient) DisplayToast(ctx context.Context, header, text string) error {
	return invoke(ctx, c.conn, hostServiceName, "DisplayToast", &ToastRequest{Header: header, Text: text}, &Empty{})
}

func (c *HostClient) RequestLocalizedString(ctx context.Context, key, owner string) (string, error) {
	out := &LocalizedStringReply{}
	if err := invoke(ctx, c.conn, hostServiceName, "RequestLocalizedString", &LocalizedStringRequest{Key: key, Owner: owner}, out); err != nil {
		return "", err
	}
	return out.Value, nil
}

func (c *HostClient) RefreshLocalizationResourceRoot(ctx context.Context, path, owner string) error {
	return invoke(ctx, c.conn, hostServiceName, "RefreshLocalizationResourceRoot", &ResourceRootRequest{Path: path, Owner: owner}, &Empty{})
}

func (c *HostClient) AppJointPoses(ctx context.Context) ([]hostdomain.JointPose, error) {
	out := &JointPosesReply{}
	if err := invoke(ctx, c.conn, hostServiceName, "AppJointPoses", &Empty{}, out); err != nil {
		return nil, err
	}
	return out.Joints, nil
}

func (c *HostClient) RequestExit(ctx context.Context, message, requester string, fatal bool) error {
	return invoke(ctx, c.conn, hostServiceName, "RequestExit", &ExitRequest{Message: message, Requester: requester, Fatal: fatal}, &Empty{})
}

func (c *HostClient) Close() error {
	return c.conn.Close()
}

func registerHostServer(server grpc.ServiceRegistrar, impl HostServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: hostServiceName,
		HandlerType: (*HostServer)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod(hostServiceName, "Log", func(ctx context.Context, in *LogRequest) (*Empty, error) {
				return &Empty{}, impl.Log(ctx, in.Severity, in.Message)
			}),
			unaryMethod(hostServiceName, "PlaySound", func(ctx context.Context, in *SoundRequest) (*Empty, error) {
				return &Empty{}, impl.PlaySound(ctx, in.Sound)
			}),
			unaryMethod(hostServiceName, "DisplayToast", func(ctx context.Context, in *ToastRequest) (*Empty, error) {
				return &Empty{}, impl.DisplayToast(ctx, in.Header, in.Text)
			}),
			unaryMethod(hostServiceName, "RequestLocalizedString", func(ctx context.Context, in *LocalizedStringRequest) (*LocalizedStringReply, error) {
				value, err := impl.RequestLocalizedString(ctx, in.Key, in.Owner)
				if err != nil {
					return nil, err
				}
				return &LocalizedStringReply{Value: value}, nil
			}),
			unaryMethod(hostServiceName, "RefreshLocalizationResourceRoot", func(ctx context.Context, in *ResourceRootRequest) (*Empty, error) {
				return &Empty{}, impl.RefreshLocalizationResourceRoot(ctx, in.Path, in.Owner)
			}),
			unaryMethod(hostServiceName, "AppJointPoses", func(ctx context.Context, _ *Empty) (*JointPosesReply, error) {
				joints, err := impl.AppJointPoses(ctx)
				if err != nil {
					return nil, err
				}
				return &JointPosesReply{Joints: joints}, nil
			}),
			unaryMethod(hostServiceName, "RequestExit", func(ctx context.Context, in *ExitRequest) (*Empty, error) {
				return &Empty{}, impl.RequestExit(ctx, in.Message, in.Requester, in.Fatal)
			}),
		},
		Streams: []grpc.StreamDesc{},
	}, impl)
}

// serveHost exposes host on a fresh broker stream and returns its id.
// A nil host yields id 0, which plugins treat as "no host".
func serveHost(broker *plugin.GRPCBroker, host HostServer) uint32 {
	if broker == nil || host == nil {
		return 0
	}
	id := broker.NextId()
	go broker.AcceptAndServe(id, func(opts []grpc.ServerOption) *grpc.Server {
		server := grpc.NewServer(opts...)
		registerHostServer(server, host)
		return server
	})
	return id
}

func dialHost(broker *plugin.GRPCBroker, id uint32) (*HostClient, error) {
	if broker == nil || id == 0 {
		return nil, nil
	}
	conn, err := broker.Dial(id)
	if err != nil {
		return nil, err
	}
	return &HostClient{conn: conn}, nil
}
