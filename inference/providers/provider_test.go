package providers

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderBackend
	}{
		{"", CPUProviderBackend},
		{"cpu", CPUProviderBackend},
		{" CoreML ", CoreMLProviderBackend},
		{"CUDA", CUDAProviderBackend},
		{"openvino", OpenVINOProviderBackend},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBackendUnknown(t *testing.T) {
	_, err := ParseBackend("tpu")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
	assert.Contains(t, err.Error(), "tpu")
}

func TestGetSharedLibPathEnvOverride(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/ort/libonnxruntime.so")
	assert.Equal(t, "/opt/ort/libonnxruntime.so", GetSharedLibPath())
}
