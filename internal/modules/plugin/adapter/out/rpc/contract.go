package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Keys in the go-plugin plugin set.
const (
	MetadataPluginKey = "metadata"
	DevicePluginKey   = "device"
	ServicePluginKey  = "service"
)

const jsonCodecName = "json"

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TRACKHOST_PLUGIN",
	MagicCookieValue: "trackhost",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

func unaryMethod[Req any, Resp any](service, method string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type for %s", fullMethod)
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func invoke(ctx context.Context, conn *grpc.ClientConn, service, method string, in, out any) error {
	return conn.Invoke(ctx, "/"+service+"/"+method, in, out, grpc.CallContentSubtype(jsonCodecName))
}

// PluginMap is the plugin set a plugin binary serves. Nil implementations are omitted.
func PluginMap(metadata MetadataServer, device Device, service Service) map[string]plugin.Plugin {
	plugins := map[string]plugin.Plugin{
		MetadataPluginKey: &MetadataPlugin{Impl: metadata},
	}
	if device != nil {
		plugins[DevicePluginKey] = &DevicePlugin{Impl: device}
	}
	if service != nil {
		plugins[ServicePluginKey] = &ServicePlugin{Impl: service}
	}
	return plugins
}

// ClientPluginMap is the plugin set the host dispenses from.
func ClientPluginMap() map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		MetadataPluginKey: &MetadataPlugin{},
		DevicePluginKey:   &DevicePlugin{},
		ServicePluginKey:  &ServicePlugin{},
	}
}

// Serve runs a plugin binary until the host disconnects.
func Serve(metadata MetadataServer, device Device, service Service) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(metadata, device, service),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
