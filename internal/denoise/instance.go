package denoise

import (
	"fmt"
	"log"
	"sync"

	"github.com/navarp/navarp-go/internal/checkpoint"
	"github.com/navarp/navarp-go/internal/device"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

// instance is a network with weights loaded, in eval mode, bound to the
// selected device.
type instance struct {
	path      string
	selection device.Selection
	model     *srcnn.Model[tensor.Backend]
}

// acquire selects the device, builds the network and loads the checkpoint.
// A missing checkpoint is reported before any tensor is allocated.
func acquire(path string, sel *device.Selector, logger *log.Logger) (*instance, error) {
	if err := checkpoint.Stat(path); err != nil {
		return nil, err
	}

	selection := sel.Select()
	logger.Printf("device: %s", selection)

	model := srcnn.New(selection.Backend)
	if err := checkpoint.Load(path, model); err != nil {
		selection.Release()
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}

	return &instance{
		path:      path,
		selection: selection,
		model:     model,
	}, nil
}

func (inst *instance) release() {
	inst.selection.Release()
}

// shared holds the process-wide instance used when Config.Reuse is set.
// The mutex also serialises inference on it.
var shared struct {
	mu   sync.Mutex
	inst *instance
}

// withShared runs fn on the shared instance, building it on first use or
// when the weights path changes.
func withShared(path string, sel *device.Selector, logger *log.Logger, fn func(*instance) error) error {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.inst != nil && shared.inst.path != path {
		shared.inst.release()
		shared.inst = nil
	}
	if shared.inst == nil {
		inst, err := acquire(path, sel, logger)
		if err != nil {
			return err
		}
		shared.inst = inst
	}
	return fn(shared.inst)
}

// ResetShared releases the shared instance. The next call with
// Config.Reuse builds a new one.
func ResetShared() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.inst != nil {
		shared.inst.release()
		shared.inst = nil
	}
}

