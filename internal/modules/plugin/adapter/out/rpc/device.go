package rpc

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"

	"trackhost/internal/modules/plugin/domain"
)

const deviceServiceName = domain.ContractDevice

type OnLoadRequest struct {
	HostBrokerID uint32 `json:"host_broker_id"`
}

type SignalJointRequest struct {
	Index int `json:"index"`
}

type JointsReply struct {
	Joints []domain.TrackedJoint `json:"joints"`
}

// Device is implemented by tracking-device plugins. host is nil when the
// host did not offer callbacks.
type Device interface {
	OnLoad(ctx context.Context, host *HostClient) error
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Update(ctx context.Context) error
	SignalJoint(ctx context.Context, index int) error
	State(ctx context.Context) (domain.DeviceState, error)
	SettingsPanel(ctx context.Context) (domain.SettingsPanel, error)
}

// DeviceClient is the host side of the device contract.
type DeviceClient struct {
	conn   *grpc.ClientConn
	broker *plugin.GRPCBroker
	// Host is served to the plugin on OnLoad.
	Host HostServer
}

func (c *DeviceClient) OnLoad(ctx context.Context) error {
	request := &OnLoadRequest{HostBrokerID: serveHost(c.broker, c.Host)}
	return invoke(ctx, c.conn, deviceServiceName, "OnLoad", request, &Empty{})
}

func (c *DeviceClient) Initialize(ctx context.Context) error {
	return invoke(ctx, c.conn, deviceServiceName, "Initialize", &Empty{}, &Empty{})
}

func (c *DeviceClient) Shutdown(ctx context.Context) error {
	return invoke(ctx, c.conn, deviceServiceName, "Shutdown", &Empty{}, &Empty{})
}

func (c *DeviceClient) Update(ctx context.Context) error {
	return invoke(ctx, c.conn, deviceServiceName, "Update", &Empty{}, &Empty{})
}

func (c *DeviceClient) SignalJoint(ctx context.Context, index int) error {
	return invoke(ctx, c.conn, deviceServiceName, "SignalJoint", &SignalJointRequest{Index: index}, &Empty{})
}

func (c *DeviceClient) Status(ctx context.Context) (domain.Status, error) {
	out := domain.Status{}
	err := invoke(ctx, c.conn, deviceServiceName, "Status", &Empty{}, &out)
	return out, err
}

func (c *DeviceClient) Flags(ctx context.Context) (domain.DeviceFlags, error) {
	out := domain.DeviceFlags{}
	err := invoke(ctx, c.conn, deviceServiceName, "Flags", &Empty{}, &out)
	return out, err
}

func (c *DeviceClient) TrackedJoints(ctx context.Context) ([]domain.TrackedJoint, error) {
	out := JointsReply{}
	if err := invoke(ctx, c.conn, deviceServiceName, "TrackedJoints", &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Joints, nil
}

func (c *DeviceClient) State(ctx context.Context) (domain.DeviceState, error) {
	out := domain.DeviceState{}
	err := invoke(ctx, c.conn, deviceServiceName, "State", &Empty{}, &out)
	return out, err
}

func (c *DeviceClient) SettingsPanel(ctx context.Context) (domain.SettingsPanel, error) {
	out := domain.SettingsPanel{}
	err := invoke(ctx, c.conn, deviceServiceName, "SettingsPanel", &Empty{}, &out)
	return out, err
}

func registerDeviceServer(server grpc.ServiceRegistrar, broker *plugin.GRPCBroker, impl Device) {
	state := func(ctx context.Context) (*domain.DeviceState, error) {
		current, err := impl.State(ctx)
		if err != nil {
			return nil, err
		}
		return &current, nil
	}
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: deviceServiceName,
		HandlerType: (*Device)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod(deviceServiceName, "OnLoad", func(ctx context.Context, in *OnLoadRequest) (*Empty, error) {
				host, err := dialHost(broker, in.HostBrokerID)
				if err != nil {
					return nil, err
				}
				return &Empty{}, impl.OnLoad(ctx, host)
			}),
			unaryMethod(deviceServiceName, "Initialize", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Initialize(ctx)
			}),
			unaryMethod(deviceServiceName, "Shutdown", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Shutdown(ctx)
			}),
			unaryMethod(deviceServiceName, "Update", func(ctx context.Context, _ *Empty) (*Empty, error) {
				return &Empty{}, impl.Update(ctx)
			}),
			unaryMethod(deviceServiceName, "SignalJoint", func(ctx context.Context, in *SignalJointRequest) (*Empty, error) {
				return &Empty{}, impl.SignalJoint(ctx, in.Index)
			}),
			unaryMethod(deviceServiceName, "Status", func(ctx context.Context, _ *Empty) (*domain.Status, error) {
				current, err := state(ctx)
				if err != nil {
					return nil, err
				}
				return &current.Status, nil
			}),
			unaryMethod(deviceServiceName, "Flags", func(ctx context.Context, _ *Empty) (*domain.DeviceFlags, error) {
				current, err := state(ctx)
				if err != nil {
					return nil, err
				}
				return &current.Flags, nil
			}),
			unaryMethod(deviceServiceName, "TrackedJoints", func(ctx context.Context, _ *Empty) (*JointsReply, error) {
				current, err := state(ctx)
				if err != nil {
					return nil, err
				}
				return &JointsReply{Joints: current.Joints}, nil
			}),
			unaryMethod(deviceServiceName, "State", func(ctx context.Context, _ *Empty) (*domain.DeviceState, error) {
				return state(ctx)
			}),
			unaryMethod(deviceServiceName, "SettingsPanel", func(ctx context.Context, _ *Empty) (*domain.SettingsPanel, error) {
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

type DevicePlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl Device
}

func (p *DevicePlugin) GRPCServer(broker *plugin.GRPCBroker, server *grpc.Server) error {
	registerDeviceServer(server, broker, p.Impl)
	return nil
}

func (p *DevicePlugin) GRPCClient(_ context.Context, broker *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return &DeviceClient{conn: conn, broker: broker}, nil
}
