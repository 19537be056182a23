package rpc

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"

	"trackhost/internal/modules/plugin/domain"
)

const serviceServiceName = domain.ContractService

type HeadsetPoseReply struct {
	Pose    domain.Pose `json:"pose"`
	Present bool        `json:"present"`
}

type BoolRequest struct {
	Value bool `json:"value"`
}

type TrackersRequest struct {
	Trackers  []domain.Tracker `json:"trackers"`
	WantReply bool             `json:"want_reply"`
}

type TrackersReply struct {
	Results []domain.TrackerResult `json:"results"`
}

type RestartRequest struct {
	Reason    string `json:"reason"`
	WantReply bool   `json:"want_reply"`
}

type RestartReply struct {
	Accepted bool `json:"accepted"`
}

// Service is implemented by tracking-service plugins.
type Service interface {
	OnLoad(ctx context.Context, host *HostClient) error
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Heartbeat(ctx context.Context) error
	Status(ctx context.Context) (domain.Status, error)
	Settings(ctx context.Context) (domain.ServiceSettings, error)
	HeadsetPose(ctx context.Context) (domain.Pose, bool, error)
	SetAutoStart(ctx context.Context, enabled bool) error
	SetAutoClose(ctx context.Context, enabled bool) error
	TestConnection(ctx context.Context) (domain.ConnectionResult, error)
	SetTrackerStates(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error)
	UpdateTrackerPoses(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error)
	RequestServiceRestart(ctx context.Context, reason string, wantReply bool) (bool, error)
	SettingsPanel(ctx context.Context) (domain.SettingsPanel, error)
}

// ServiceClient is the host side of the service contract.
type ServiceClient struct {
	conn   *grpc.ClientConn
	broker *plugin.GRPCBroker
	Host   HostServer
}

func (c *ServiceClient) OnLoad(ctx context.Context) error {
	request := &OnLoadRequest{HostBrokerID: serveHost(c.broker, c.Host)}
	return invoke(ctx, c.conn, serviceServiceName, "OnLoad", request, &Empty{})
}

func (c *ServiceClient) Initialize(ctx context.Context) error {
	return invoke(ctx, c.conn, serviceServiceName, "Initialize", &Empty{}, &Empty{})
}

func (c *ServiceClient) Shutdown(ctx context.Context) error {
	return invoke(ctx, c.conn, serviceServiceName, "Shutdown", &Empty{}, &Empty{})
}

func (c *ServiceClient) Heartbeat(ctx context.Context) error {
	return invoke(ctx, c.conn, serviceServiceName, "Heartbeat", &Empty{}, &Empty{})
}

func (c *ServiceClient) Status(ctx context.Context) (domain.Status, error) {
	out := domain.Status{}
	err := invoke(ctx, c.conn, serviceServiceName, "Status", &Empty{}, &out)
	return out, err
}

func (c *ServiceClient) Settings(ctx context.Context) (domain.ServiceSettings, error) {
	out := domain.ServiceSettings{}
	err := invoke(ctx, c.conn, serviceServiceName, "Settings", &Empty{}, &out)
	return out, err
}

func (c *ServiceClient) HeadsetPose(ctx context.Context) (domain.Pose, bool, error) {
	out := HeadsetPoseReply{}
	if err := invoke(ctx, c.conn, serviceServiceName, "HeadsetPose", &Empty{}, &out); err != nil {
		return domain.Pose{}, false, err
	}
	return out.Pose, out.Present, nil
}

func (c *ServiceClient) SetAutoStart(ctx context.Context, enabled bool) error {
	return invoke(ctx, c.conn, serviceServiceName, "SetAutoStart", &BoolRequest{Value: enabled}, &Empty{})
}

func (c *ServiceClient) SetAutoClose(ctx context.Context, enabled bool) error {
	return invoke(ctx, c.conn, serviceServiceName, "SetAutoClose", &BoolRequest{Value: enabled}, &Empty{})
}

func (c *ServiceClient) TestConnection(ctx context.Context) (domain.ConnectionResult, error) {
	out := domain.ConnectionResult{}
	err := invoke(ctx, c.conn, serviceServiceName, "TestConnection", &Empty{}, &out)
	return out, err
}

func (c *ServiceClient) SetTrackerStates(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error) {
	return c.trackers(ctx, "SetTrackerStates", trackers, wantReply)
}

func (c *ServiceClient) UpdateTrackerPoses(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error) {
	return c.trackers(ctx, "UpdateTrackerPoses", trackers, wantReply)
}

func (c *ServiceClient) trackers(ctx context.Context, method string, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error) {
	out := TrackersReply{}
	if err := invoke(ctx, c.conn, serviceServiceName, method, &TrackersRequest{Trackers: trackers, WantReply: wantReply}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *ServiceClient) RequestServiceRestart(ctx context.Context, reason string, wantReply bool) (bool, error) {
	out := RestartReply{}
	if err := invoke(ctx, c.conn, serviceServiceName, "RequestServiceRestart", &RestartRequest{Reason: reason, WantReply: wantReply}, &out); err != nil {
		return false, err
	}
	return out.Accepted, nil
}

func (c *ServiceClient) SettingsPanel(ctx context.Context) (domain.SettingsPanel, error) {
	out := domain.SettingsPanel{}
	err := invoke(ctx, c.conn, serviceServiceName, "SettingsPanel", &Empty{}, &out)
	return out, err
}

func registerServiceServer(server grpc.ServiceRegistrar, broker *plugin.GRPCBroker, impl Service) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod(serviceServiceName, "OnLoad", func(ctx context.Context, in *OnLoadRequest) (*Empty, error) {
				host, err := dialHost(broker, in.HostBrokerID)
				if err != nil {
					return nil, err
				}
				return &Empty{}, impl.OnLoad(ctx, host)
			}),
			unaryMethod(serviceServiceName, "Initialize", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Initialize(ctx)
			}),
			unaryMethod(serviceServiceName, "Shutdown", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Shutdown(ctx)
			}),
			unaryMethod(serviceServiceName, "Heartbeat", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Heartbeat(ctx)
			}),
			unaryMethod(serviceServiceName, "Status", func(ctx context.Context, _ *Empty) (*domain.Status, error) {
				status, err := impl.Status(ctx)
				if err != nil {
					return nil, err
				}
				return &status, nil
			}),
			unaryMethod(serviceServiceName, "Settings", func(ctx context.Context, _ *Empty) (*domain.ServiceSettings, error) {
				settings, err := impl.Settings(ctx)
				if err != nil {
					return nil, err
				}
				return &settings, nil
			}),
			unaryMethod(serviceServiceName, "HeadsetPose", func(ctx context.Context, _ *Empty) (*HeadsetPoseReply, error) {
				pose, present, err := impl.HeadsetPose(ctx)
				if err != nil {
					return nil, err
				}
				return &HeadsetPoseReply{Pose: pose, Present: present}, nil
			}),
			unaryMethod(serviceServiceName, "SetAutoStart", func(ctx context.Context, in *BoolRequest) (*Empty, error) {
				return &Empty{}, impl.SetAutoStart(ctx, in.Value)
			}),
			unaryMethod(serviceServiceName, "SetAutoClose", func(ctx context.Context, in *BoolRequest) (*Empty, error) {
				return &Empty{}, impl.SetAutoClose(ctx, in.Value)
			}),
			unaryMethod(serviceServiceName, "TestConnection", func(ctx context.Context, _ *Empty) (*domain.ConnectionResult, error) {
				result, err := impl.TestConnection(ctx)
				if err != nil {
					return nil, err
				}
				return &result, nil
			}),
			unaryMethod(serviceServiceName, "SetTrackerStates", func(ctx context.Context, in *TrackersRequest) (*TrackersReply, error) {
				results, err := impl.SetTrackerStates(ctx, in.Trackers, in.WantReply)
				if err != nil {
					return nil, err
				}
				return &TrackersReply{Results: results}, nil
			}),
			unaryMethod(serviceServiceName, "UpdateTrackerPoses", func(ctx context.Context, in *TrackersRequest) (*TrackersReply, error) {
				results, err := impl.UpdateTrackerPoses(ctx, in.Trackers, in.WantReply)
				if err != nil {
					return nil, err
				}
				return &TrackersReply{Results: results}, nil
			}),
			unaryMethod(serviceServiceName, "RequestServiceRestart", func(ctx context.Context, in *RestartRequest) (*RestartReply, error) {
				accepted, err := impl.RequestServiceRestart(ctx, in.Reason, in.WantReply)
				if err != nil {
					return nil, err
				}
				return &RestartReply{Accepted: accepted}, nil
			}),
			unaryMethod(serviceServiceName, "SettingsPanel", func(ctx context.Context, _ *Empty) (*domain.SettingsPanel, error) {
				panel, err := impl.SettingsPanel(ctx)
				if err != nil {
					return nil, err
				}
				return &panel, nil
			}),
		},
		Streams: []grpc.StreamDesc{},
	}, impl)
}

type ServicePlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl Service
}

func (p *ServicePlugin) GRPCServer(broker *plugin.GRPCBroker, server *grpc.Server) error {
	registerServiceServer(server, broker, p.Impl)
	return nil
}

func (p *ServicePlugin) GRPCClient(_ context.Context, broker *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return &ServiceClient{conn: conn, broker: broker}, nil
}
