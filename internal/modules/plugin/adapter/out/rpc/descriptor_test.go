package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type recordingRegistrar struct {
	descs []*grpc.ServiceDesc
}

func (r *recordingRegistrar) RegisterService(desc *grpc.ServiceDesc, _ any) {
	r.descs = append(r.descs, desc)
}

func TestServiceDescriptors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		service  string
		register func(grpc.ServiceRegistrar)
	}{
		{"device", deviceServiceName, func(s grpc.ServiceRegistrar) { registerDeviceServer(s, nil, nil) }},
		{"service", serviceServiceName, func(s grpc.ServiceRegistrar) { registerServiceServer(s, nil, nil) }},
		{"metadata", metadataServiceName, func(s grpc.ServiceRegistrar) { registerMetadataServer(s, nil) }},
		{"host", hostServiceName, func(s grpc.ServiceRegistrar) { registerHostServer(s, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registrar := &recordingRegistrar{}
			tt.register(registrar)

			require.Len(t, registrar.descs, 1)
			desc := registrar.descs[0]
			require.Equal(t, tt.service, desc.ServiceName)
			require.Empty(t, desc.Metadata)
			require.NotEmpty(t, desc.Methods)

			seen := map[string]bool{}
			for _, method := range desc.Methods {
				require.False(t, seen[method.MethodName], method.MethodName)
				seen[method.MethodName] = true
			}
		})
	}
}
