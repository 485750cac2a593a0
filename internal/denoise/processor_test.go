package denoise

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/checkpoint"
	"github.com/navarp/navarp-go/internal/device"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

// hostOnly never offers an accelerator.
var hostOnly = &device.Selector{
	OpenAccelerator: func() (tensor.Backend, error) { return nil, errors.New("no accelerator") },
}

func writeWeights(t *testing.T) string {
	t.Helper()
	path := checkpoint.PathIn(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	sd := srcnn.New(cpu.New(), srcnn.WithSeed(1)).StateDict()
	require.NoError(t, checkpoint.Save(path, sd, nil))
	return path
}

func testConfig(t *testing.T, strategy Strategy) (Config, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return Config{
		WeightsPath: writeWeights(t),
		Strategy:    strategy,
		Logger:      log.New(&buf, "", 0),
		Selector:    hostOnly,
	}, &buf
}

func zeros(t *testing.T, shape ...int) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromFloat32(make([]float32, tensor.Shape(shape).NumElements()), shape...)
	require.NoError(t, err)
	return raw
}

func ramp(t *testing.T, shape ...int) *tensor.RawTensor {
	t.Helper()
	data := make([]float32, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = float32(i%13) - 4
	}
	raw, err := tensor.FromFloat32(data, shape...)
	require.NoError(t, err)
	return raw
}

func assertNonNegative(t *testing.T, raw *tensor.RawTensor) {
	t.Helper()
	for i, v := range raw.AsFloat32() {
		require.GreaterOrEqual(t, v, float32(0), "element %d", i)
	}
}

func TestLiteralRank3IsMalformedBatch(t *testing.T) {
	cfg, logs := testConfig(t, Literal)

	_, err := New(cfg).Denoise(zeros(t, 3, 8, 8))
	require.ErrorIs(t, err, ErrMalformedBatch)
	assert.Contains(t, err.Error(), "[3 1 1 8 8]")
	assert.Contains(t, logs.String(), "data shape: [3 8 8]")
	assert.Contains(t, logs.String(), "denoising slice: 0")
	assert.NotContains(t, logs.String(), "denoising slice: 1")
}

func TestLiteralRank2(t *testing.T) {
	cfg, logs := testConfig(t, Literal)

	out, err := New(cfg).Denoise(zeros(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8, 8}, out.Shape())
	assertNonNegative(t, out)
	assert.Contains(t, logs.String(), "output shape: [8 8]")
}

func TestLiteralRank2IsRowBatch(t *testing.T) {
	cfg, _ := testConfig(t, Literal)
	input := ramp(t, 4, 6)

	out, err := New(cfg).Denoise(input)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{4, 6}, out.Shape())

	// Each row is denoised as its own 1x6 image.
	m := srcnn.New(cpu.New())
	require.NoError(t, checkpoint.Load(cfg.WeightsPath, m))
	rows, err := input.View(tensor.Shape{4, 1, 1, 6})
	require.NoError(t, err)
	want := m.Forward(tensor.New[float32](rows, cpu.New()))
	assert.InDeltaSlice(t, want.Data(), out.AsFloat32(), 1e-6)
}

func TestPerSliceRank3(t *testing.T) {
	cfg, logs := testConfig(t, PerSlice)

	out, err := New(cfg).Denoise(zeros(t, 3, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 8, 8}, out.Shape())
	assertNonNegative(t, out)
	assert.Contains(t, logs.String(), "denoising slice: 2")
	assert.Contains(t, logs.String(), "output shape: [3 8 8]")
}

func TestPerSliceMatchesSingleSlices(t *testing.T) {
	cfg, _ := testConfig(t, PerSlice)
	p := New(cfg)
	stack := ramp(t, 2, 5, 7)

	out, err := p.Denoise(stack)
	require.NoError(t, err)

	for i := range 2 {
		slice, err := tensor.FromFloat32(stack.AsFloat32()[i*35:(i+1)*35], 5, 7)
		require.NoError(t, err)

		single, err := p.Denoise(slice)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{5, 7}, single.Shape())
		assert.Equal(t, single.AsFloat32(), out.AsFloat32()[i*35:(i+1)*35])
	}
}

func TestInputNotMutated(t *testing.T) {
	cfg, _ := testConfig(t, PerSlice)
	stack := ramp(t, 2, 4, 4)
	before := stack.Clone()

	_, err := New(cfg).Denoise(stack)
	require.NoError(t, err)
	assert.Equal(t, before.AsFloat32(), stack.AsFloat32())
}

func TestFloat64Input(t *testing.T) {
	cfg, _ := testConfig(t, PerSlice)
	raw, err := tensor.NewRaw(tensor.Shape{2, 4, 4}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)

	out, err := New(cfg).Denoise(raw)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, out.DType())
	assert.Equal(t, tensor.Shape{2, 4, 4}, out.Shape())
}

func TestMissingCheckpoint(t *testing.T) {
	opened := false
	cfg := Config{
		WeightsPath: checkpoint.PathIn(t.TempDir()),
		Selector: &device.Selector{OpenAccelerator: func() (tensor.Backend, error) {
			opened = true
			return nil, errors.New("unused")
		}},
	}

	_, err := New(cfg).Denoise(zeros(t, 3, 8, 8))
	require.ErrorIs(t, err, ErrMissingCheckpoint)
	assert.False(t, opened, "device selected before checkpoint check")
}

func TestShapeMismatchCheckpoint(t *testing.T) {
	sd := srcnn.New(cpu.New(), srcnn.WithSeed(1)).StateDict()
	sd["srcnn.0.weight"] = zeros(t, 32, 1, 3, 3)
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	require.NoError(t, checkpoint.Save(path, sd, nil))

	_, err := New(Config{WeightsPath: path, Selector: hostOnly}).Denoise(zeros(t, 8, 8))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestOutputDeviceIsCPUWithoutAccelerator(t *testing.T) {
	cfg, logs := testConfig(t, PerSlice)

	out, err := New(cfg).Denoise(zeros(t, 1, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, "CPU", out.Device().String())
	assert.Contains(t, logs.String(), "device: cpu")
}

func TestInvalidStacks(t *testing.T) {
	cfg, _ := testConfig(t, Literal)
	p := New(cfg)

	_, err := p.Denoise(nil)
	assert.ErrorIs(t, err, ErrInvalidStack)

	_, err = p.Denoise(zeros(t, 8))
	assert.ErrorIs(t, err, ErrInvalidStack)

	_, err = p.Denoise(zeros(t, 1, 2, 8, 8))
	assert.ErrorIs(t, err, ErrInvalidStack)
}

func TestBackendPanicIsReported(t *testing.T) {
	cfg, _ := testConfig(t, PerSlice)
	cfg.Selector = &device.Selector{
		OpenAccelerator: func() (tensor.Backend, error) { return &failingBackend{CPUBackend: cpu.New()}, nil },
	}

	_, err := New(cfg).Denoise(zeros(t, 1, 4, 4))
	require.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestReuseSharesInstance(t *testing.T) {
	t.Cleanup(ResetShared)
	ResetShared()

	cfg, logs := testConfig(t, PerSlice)
	cfg.Reuse = true
	p := New(cfg)

	_, err := p.Denoise(zeros(t, 1, 4, 4))
	require.NoError(t, err)
	assert.True(t, sharedLoaded())

	_, err = p.Denoise(zeros(t, 1, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("device: ")))

	ResetShared()
	assert.False(t, sharedLoaded())

	_, err = p.Denoise(zeros(t, 1, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("device: ")))
}

func TestReuseReloadsOnPathChange(t *testing.T) {
	t.Cleanup(ResetShared)
	ResetShared()

	first, logs := testConfig(t, PerSlice)
	first.Reuse = true
	_, err := New(first).Denoise(zeros(t, 4, 4))
	require.NoError(t, err)

	second := first
	second.WeightsPath = writeWeights(t)
	_, err = New(second).Denoise(zeros(t, 4, 4))
	require.NoError(t, err)

	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("device: ")))
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "literal", Literal.String())
	assert.Equal(t, "per-slice", PerSlice.String())
	assert.Equal(t, Literal, DefaultConfig().Strategy)
}

// failingBackend simulates an accelerator that fails mid-computation.
type failingBackend struct {
	*cpu.CPUBackend
}

func (f *failingBackend) Device() tensor.Device { return tensor.WebGPU }

func (f *failingBackend) Conv2D(*tensor.RawTensor, *tensor.RawTensor, int, int) *tensor.RawTensor {
	panic("device out of memory")
}

func sharedLoaded() bool {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.inst != nil
}
