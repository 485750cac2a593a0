// Package device picks the compute backend the denoiser runs on.
//
// Selection is a two-way capability check: an accelerator if one can be
// opened, otherwise the host CPU. Selection never fails.
package device

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/backend/webgpu"
	"github.com/navarp/navarp-go/internal/tensor"
)

// Kind is the selected device class.
type Kind int

// Device kinds.
const (
	HostCPU Kind = iota
	Accelerator
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Accelerator:
		return "accelerator"
	case HostCPU:
		return "cpu"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Selection is the outcome of device selection. Backend is ready to use.
type Selection struct {
	Kind    Kind
	Backend tensor.Backend
	// Reason explains why the accelerator was not chosen. Empty when it was.
	Reason string
}

// String describes the selection.
func (s Selection) String() string {
	if s.Reason != "" {
		return fmt.Sprintf("%s (%s) [%s]", s.Kind, s.Backend.Name(), s.Reason)
	}
	return fmt.Sprintf("%s (%s)", s.Kind, s.Backend.Name())
}

// Release frees accelerator resources when the backend holds any.
func (s Selection) Release() {
	if r, ok := s.Backend.(interface{ Release() }); ok {
		r.Release()
	}
}

// Selector chooses between an accelerator and the host CPU.
type Selector struct {
	// OpenAccelerator opens the accelerator backend. Nil means none.
	OpenAccelerator func() (tensor.Backend, error)
	// NewHost creates the host backend. Nil means cpu.New.
	NewHost func() tensor.Backend
}

// Default returns a selector probing WebGPU.
func Default() *Selector {
	return &Selector{OpenAccelerator: webgpu.Open}
}

// Select probes the accelerator and falls back to the host CPU on any
// error or panic from the probe.
func (s *Selector) Select() Selection {
	if s.OpenAccelerator != nil {
		backend, err := s.probe()
		if err == nil {
			return Selection{Kind: Accelerator, Backend: backend}
		}
		return Selection{Kind: HostCPU, Backend: s.host(), Reason: err.Error()}
	}
	return Selection{Kind: HostCPU, Backend: s.host(), Reason: "no accelerator configured"}
}

func (s *Selector) probe() (backend tensor.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("accelerator probe panicked: %v", r)
		}
	}()

	backend, err = s.OpenAccelerator()
	if err == nil && backend == nil {
		err = fmt.Errorf("accelerator probe returned no backend")
	}
	return backend, err
}

func (s *Selector) host() tensor.Backend {
	if s.NewHost != nil {
		return s.NewHost()
	}
	return cpu.New()
}

// Select runs the default selector.
func Select() Selection {
	return Default().Select()
}
