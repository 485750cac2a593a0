package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/navarp/navarp-go/internal/tensor"
)

type headerEntry struct {
	DType       DType    `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Save writes tensors to path in SafeTensors format.
//
// Tensors are written in alphabetical order by name. The hex SHA-256 of
// the data section is stored under the "sha256" metadata key next to the
// caller's metadata.
func Save(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := slices.Sorted(maps.Keys(tensors))

	hash := sha256.New()
	header := make(map[string]any, len(names)+1)

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}

		shape := make([]int64, len(raw.Shape()))
		for i, d := range raw.Shape() {
			shape[i] = int64(d)
		}

		size := int64(raw.ByteSize())
		header[name] = headerEntry{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
		hash.Write(raw.Data())
	}

	meta := make(map[string]string, len(metadata)+1)
	maps.Copy(meta, metadata)
	meta[MetadataChecksum] = hex.EncodeToString(hash.Sum(nil))
	header["__metadata__"] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	//nolint:gosec // G304: output path is operator supplied
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := writeFile(file, headerJSON, names, tensors); err != nil {
		_ = file.Close() // Best effort close on error
		return err
	}
	return file.Close()
}

func writeFile(file *os.File, headerJSON []byte, names []string, tensors map[string]*tensor.RawTensor) error {
	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := file.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

func dtypeToSafeTensors(dt tensor.DataType) (DType, error) {
	switch dt {
	case tensor.Float32:
		return F32, nil
	case tensor.Float64:
		return F64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}
