package checkpoint

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/navarp/navarp-go/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// Validation limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorNameLen = 4096

	// MetadataChecksum is the metadata key holding the hex SHA-256 of the
	// data section, written by Save.
	MetadataChecksum = "sha256"
)

// DType is a SafeTensors dtype string.
type DType string

// SafeTensors dtypes. Only F32 and F64 can be loaded.
const (
	F16  DType = "F16"
	BF16 DType = "BF16"
	F32  DType = "F32"
	F64  DType = "F64"
	I32  DType = "I32"
	I64  DType = "I64"
	U8   DType = "U8"
	BOOL DType = "BOOL"
)

// Size returns the element size in bytes, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case U8, BOOL:
		return 1
	case F16, BF16:
		return 2
	case F32, I32:
		return 4
	case F64, I64:
		return 8
	default:
		return 0
	}
}

// TensorInfo describes a tensor entry of the header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

type header struct {
	metadata map[string]string
	tensors  map[string]TensorInfo
}

// UnmarshalJSON splits "__metadata__" from the tensor entries.
func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.tensors = make(map[string]TensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.tensors[key] = info
	}

	return nil
}

// Reader reads a SafeTensors file. The header is parsed and validated on
// Open; tensor data is read on demand.
type Reader struct {
	file       *os.File
	header     header
	dataOffset int64 // Offset where tensor data starts
	dataSize   int64
}

// Open opens and validates a SafeTensors file. Header problems are
// reported as a *ValidationError wrapping ErrCorruptCheckpoint.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: checkpoint path is operator supplied
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return r, nil
}

func newReader(file *os.File) (*Reader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, &ValidationError{Type: "truncated", Details: fmt.Sprintf("header size: %v", err)}
	}
	//nolint:gosec // G115: file sizes are non-negative
	if headerSize > MaxHeaderSize || headerSize > uint64(stat.Size()-8) {
		return nil, &ValidationError{
			Type:    "header_too_large",
			Details: fmt.Sprintf("header size %d, file size %d", headerSize, stat.Size()),
		}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, &ValidationError{Type: "truncated", Details: fmt.Sprintf("header: %v", err)}
	}

	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, &ValidationError{Type: "invalid_header", Details: err.Error()}
	}

	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: bounded by file size above
	r := &Reader{
		file:       file,
		header:     h,
		dataOffset: dataOffset,
		dataSize:   stat.Size() - dataOffset,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// validate checks names, sizes and offsets of every header entry.
// Unknown dtypes are accepted here and rejected when the tensor is loaded.
func (r *Reader) validate() error {
	type span struct {
		name       string
		start, end int64
	}
	spans := make([]span, 0, len(r.header.tensors))

	for name, info := range r.header.tensors {
		if err := validateName(name); err != nil {
			return err
		}

		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if start < 0 || end < start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  name,
				Details: fmt.Sprintf("data_offsets [%d, %d]", start, end),
			}
		}
		if end > r.dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  name,
				Details: fmt.Sprintf("end %d > data size %d", end, r.dataSize),
			}
		}

		if size := info.DType.Size(); size > 0 {
			numel := 1
			for _, d := range info.Shape {
				if d < 0 {
					return &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("%v", info.Shape)}
				}
				numel *= d
			}
			if int64(numel*size) != end-start {
				return &ValidationError{
					Type:    "size_mismatch",
					Tensor:  name,
					Details: fmt.Sprintf("%s%v needs %d bytes, offsets span %d", info.DType, info.Shape, numel*size, end-start),
				}
			}
		}

		spans = append(spans, span{name: name, start: start, end: end})
	}

	slices.SortFunc(spans, func(a, b span) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		default:
			return strings.Compare(a.name, b.name)
		}
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.end > cur.start {
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev.name,
				Tensor2: cur.name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", prev.start, prev.end, cur.start, cur.end),
			}
		}
	}

	return nil
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name[:64],
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// Close closes the file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the "__metadata__" map of the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.metadata
}

// TensorNames returns all tensor names in sorted order.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.tensors))
	for name := range r.header.tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TensorInfo returns the header entry of a tensor.
func (r *Reader) TensorInfo(name string) (TensorInfo, bool) {
	info, ok := r.header.tensors[name]
	return info, ok
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *Reader) ReadTensorData(name string) ([]byte, error) {
	info, ok := r.header.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}

	data := make([]byte, info.DataOffsets[1]-info.DataOffsets[0])
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return data, nil
}

// LoadTensor reads a tensor as a host float32 RawTensor. F64 values are
// narrowed to float32; other dtypes return ErrUnsupportedDType.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	info, ok := r.header.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	if info.DType != F32 && info.DType != F64 {
		return nil, fmt.Errorf("%w: tensor %s has dtype %s", ErrUnsupportedDType, name, info.DType)
	}

	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: tensor %s: %w", ErrCorruptCheckpoint, name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}

	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}

	switch info.DType {
	case F32:
		copy(raw.Data(), data)
	case F64:
		dst := raw.AsFloat32()
		for i := range dst {
			dst[i] = float32(float64FromBits(data[i*8:]))
		}
	}

	return raw, nil
}

// VerifyChecksum compares the data section against the "sha256" metadata
// entry. Files without the entry pass.
func (r *Reader) VerifyChecksum() error {
	stored, ok := r.header.metadata[MetadataChecksum]
	if !ok {
		return nil
	}
	want, err := hex.DecodeString(stored)
	if err != nil || len(want) != 32 {
		return &ValidationError{Type: "invalid_checksum", Details: fmt.Sprintf("%q is not a hex SHA-256", stored)}
	}

	got, err := ComputeChecksumReader(io.NewSectionReader(r.file, r.dataOffset, r.dataSize))
	if err != nil {
		return fmt.Errorf("failed to hash data section: %w", err)
	}
	if [32]byte(want) != got {
		return fmt.Errorf("%w: %w", ErrCorruptCheckpoint, ErrChecksumMismatch)
	}
	return nil
}
