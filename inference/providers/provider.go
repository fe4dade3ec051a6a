// Package providers - Execution providers for the ONNX runtime.
package providers

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend names the hardware path ONNX Runtime executes on.
type ProviderBackend string

const (
	// CPUProviderBackend uses the default CPU kernels.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for inference optimization.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// ErrUnknownBackend is returned for provider names that are not supported.
var ErrUnknownBackend = errors.New("unknown execution provider")

// ParseBackend parses a provider name, case-insensitively. An empty name
// selects the CPU backend.
func ParseBackend(s string) (ProviderBackend, error) {
	switch b := ProviderBackend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return CPUProviderBackend, nil
	case CPUProviderBackend, CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
		return b, nil
	default:
		return "", errors.Wrapf(ErrUnknownBackend, "%q", s)
	}
}

// Options configures an execution provider and the session threading.
type Options struct {
	// Backend selects the execution provider.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// Threads sets intra-op parallelism. Zero lets the runtime decide.
	Threads int `json:"threads" yaml:"threads"`
	// DeviceID selects the accelerator for CUDA and OpenVINO.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// DeviceType overrides the OpenVINO device type (CPU, GPU, NPU).
	DeviceType string `json:"device_type" yaml:"device_type"`
}

// SessionOptions builds ONNX Runtime session options for the configured
// provider. The caller owns the returned options and must destroy them.
//
// Arguments:
//   - opts: The provider options.
//
// Returns:
//   - *ort.SessionOptions: The session options with the provider appended.
//   - error: An error if the options cannot be created or the provider fails to attach.
func SessionOptions(opts Options) (*ort.SessionOptions, error) {
	backend, err := ParseBackend(string(opts.Backend))
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}

	if err := configure(options, backend, opts); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, backend ProviderBackend, opts Options) error {
	if opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}

	switch backend {
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return errors.Wrap(err, "enable CoreML")
		}
	case OpenVINOProviderBackend:
		// See:
		// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
		config := map[string]string{"device_id": fmt.Sprintf("%d", opts.DeviceID)}
		if opts.DeviceType != "" {
			config["device_type"] = opts.DeviceType
		}
		if opts.Threads > 0 {
			config["num_of_threads"] = fmt.Sprintf("%d", opts.Threads)
		}
		if err := options.AppendExecutionProviderOpenVINO(config); err != nil {
			return errors.Wrap(err, "enable OpenVINO")
		}
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "create CUDA options")
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": fmt.Sprintf("%d", opts.DeviceID)}); err != nil {
			return errors.Wrap(err, "configure CUDA")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "enable CUDA")
		}
	}
	return nil
}
