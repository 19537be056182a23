package rpc

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

const metadataServiceName = "trackhost.plugin.v1.Metadata"

type Metadata struct {
	GUID       string   `json:"guid"`
	Name       string   `json:"name"`
	Publisher  string   `json:"publisher,omitempty"`
	Website    string   `json:"website,omitempty"`
	UpdateURI  string   `json:"update_uri,omitempty"`
	Version    string   `json:"version"`
	APIVersion string   `json:"api_version"`
	Exports    []string `json:"exports"`
}

type MetadataServer interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
}

// StaticMetadata serves a fixed metadata record.
type StaticMetadata Metadata

func (m StaticMetadata) GetMetadata(context.Context) (*Metadata, error) {
	out := Metadata(m)
	return &out, nil
}

type MetadataClient struct {
	conn *grpc.ClientConn
}

func (c *MetadataClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := invoke(ctx, c.conn, metadataServiceName, "GetMetadata", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func registerMetadataServer(server grpc.ServiceRegistrar, impl MetadataServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: metadataServiceName,
		HandlerType: (*MetadataServer)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod(metadataServiceName, "GetMetadata", func(ctx context.Context, _ *Empty) (*Metadata, error) {
				return impl.GetMetadata(ctx)
			}),
		},
		Streams: []grpc.StreamDesc{},
	}, impl)
}

type MetadataPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl MetadataServer
}

func (p *MetadataPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	registerMetadataServer(server, p.Impl)
	return nil
}

func (p *MetadataPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return &MetadataClient{conn: conn}, nil
}
