//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/navarp/navarp-go/internal/tensor"
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout), entry point "main".
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a storage buffer holding data.
func (b *Backend) createBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()

	return buffer
}

// createOutputBuffer creates an uninitialised read-write storage buffer.
func (b *Backend) createOutputBuffer(size uint64) *wgpu.Buffer {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
}

// createUniformBuffer packs params as little-endian u32 values into a
// 16-byte aligned uniform buffer.
func (b *Backend) createUniformBuffer(params ...uint32) (*wgpu.Buffer, uint64) {
	size := uint64(len(params) * 4)
	alignedSize := (size + 15) &^ 15

	data := make([]byte, alignedSize)
	for i, p := range params {
		binary.LittleEndian.PutUint32(data[i*4:], p)
	}

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), alignedSize), data)
	buffer.Unmap()

	return buffer, alignedSize
}

// readBuffer reads data back from a GPU buffer through a staging buffer.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	result := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(result, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()

	return result, nil
}

// kernelCall describes one compute dispatch: the storage inputs (read-only,
// bindings 0..n-1), the output (binding n) and the uniform params (binding n+1).
type kernelCall struct {
	name   string
	code   string
	inputs []*tensor.RawTensor
	output tensor.Shape
	params []uint32
	groups [3]uint32
}

// run executes a kernel call and returns its output tagged tensor.WebGPU.
func (b *Backend) run(call kernelCall) (*tensor.RawTensor, error) {
	for _, in := range call.inputs {
		if in.DType() != tensor.Float32 {
			return nil, fmt.Errorf("webgpu: only float32 is supported, got %s", in.DType())
		}
	}

	pipeline := b.getOrCreatePipeline(call.name, b.compileShader(call.name, call.code))

	entries := make([]wgpu.BindGroupEntry, 0, len(call.inputs)+2)
	for i, in := range call.inputs {
		buf := b.createBuffer(in.Data())
		defer buf.Release()
		//nolint:gosec // G115: ByteSize() is non-negative
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(in.ByteSize())))
	}

	//nolint:gosec // G115: element counts are non-negative
	resultSize := uint64(call.output.NumElements() * tensor.Float32.Size())
	out := b.createOutputBuffer(resultSize)
	defer out.Release()
	//nolint:gosec // G115: binding index is small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(call.inputs)), out, 0, resultSize))

	params, paramSize := b.createUniformBuffer(call.params...)
	defer params.Release()
	//nolint:gosec // G115: binding index is small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(call.inputs)+1), params, 0, paramSize))

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(call.groups[0], call.groups[1], call.groups[2])
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readBuffer(out, resultSize)
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(call.output, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), data)
	return result, nil
}

// groupsFor returns the workgroup count covering n items.
func groupsFor(n, size int) uint32 {
	//nolint:gosec // G115: workgroup counts are non-negative
	return uint32((n + size - 1) / size)
}
