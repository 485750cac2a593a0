//go:build windows

package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/navarp/navarp-go/internal/tensor"
)

// Backend runs the denoising network's kernels on a WebGPU device.
//
// Every operation uploads its operands, dispatches one compute pass and
// reads the result back, so returned tensors are host-addressable and
// tagged tensor.WebGPU.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfo
}

// New creates a new WebGPU backend on the default high-performance adapter.
// Returns an error wrapping ErrUnavailable if WebGPU cannot be initialised.
func New() (backend *Backend, err error) {
	// wgpu_native is loaded lazily and panics when the library is missing.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}

	info := adapter.GetInfo()

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: device has no queue", ErrUnavailable)
	}

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: &info,
	}, nil
}

// Open returns a ready accelerator backend as a tensor.Backend.
func Open() (tensor.Backend, error) {
	b, err := New()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// IsAvailable checks if a WebGPU adapter can be requested on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Name returns the backend name including the adapter description.
func (b *Backend) Name() string {
	if b.adapterInfo != nil && b.adapterInfo.Name != "" {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// Release frees cached pipelines and the device. The backend must not be
// used afterwards.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, name)
	}
	for name, s := range b.shaders {
		s.Release()
		delete(b.shaders, name)
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
