// Package main provides the navdenoise CLI: denoise slice stacks stored as
// SafeTensors, create and inspect weight files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/checkpoint"
	"github.com/navarp/navarp-go/internal/denoise"
	"github.com/navarp/navarp-go/internal/device"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

const version = "v0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "navdenoise:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	logger := log.New(stderr, "navdenoise: ", 0)

	switch args[0] {
	case "denoise":
		return runDenoise(args[1:], logger)
	case "init":
		return runInit(args[1:], stdout)
	case "inspect":
		return runInspect(args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "navdenoise %s\n", version)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: navdenoise <denoise|init|inspect|version> [flags]", msg)
}

func runDenoise(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("denoise", flag.ContinueOnError)
	fs.SetOutput(logger.Writer())
	in := fs.String("in", "", "input SafeTensors file holding the slice stack")
	key := fs.String("key", "data", "tensor name of the stack in the input and output files")
	out := fs.String("out", "", "output SafeTensors file")
	weights := fs.String("weights", "", "weights file (default <exe dir>/extras/weights.safetensors)")
	perSlice := fs.Bool("per-slice", false, "denoise every slice independently")
	reuse := fs.Bool("reuse", false, "keep the loaded model between stacks")
	hostOnly := fs.Bool("cpu", false, "skip the accelerator probe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("denoise: -in and -out are required")
	}

	stack, err := readStack(*in, *key)
	if err != nil {
		return err
	}

	cfg := denoise.DefaultConfig()
	cfg.WeightsPath = *weights
	cfg.Logger = logger
	cfg.Reuse = *reuse
	if *perSlice {
		cfg.Strategy = denoise.PerSlice
	}
	if *hostOnly {
		cfg.Selector = &device.Selector{}
	}

	result, err := denoise.New(cfg).Denoise(stack)
	if err != nil {
		return err
	}

	logSummary(logger, result)

	meta := map[string]string{
		"strategy": cfg.Strategy.String(),
		"device":   result.Device().String(),
	}
	if err := checkpoint.Save(*out, map[string]*tensor.RawTensor{*key: result}, meta); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	return nil
}

func readStack(path, key string) (*tensor.RawTensor, error) {
	r, err := checkpoint.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer func() {
		_ = r.Close()
	}()

	stack, err := r.LoadTensor(key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return stack, nil
}

func logSummary(logger *log.Logger, result *tensor.RawTensor) {
	values := make([]float64, result.NumElements())
	for i, v := range result.AsFloat32() {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	logger.Printf("output %v on %s: min=%g max=%g mean=%g std=%g",
		result.Shape(), result.Device(), floats.Min(values), floats.Max(values), mean, std)
}

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	out := fs.String("out", filepath.Join(checkpoint.ExtrasDir, checkpoint.WeightsFile), "output weights file")
	seed := fs.Uint64("seed", 0, "random seed (0 picks one)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []srcnn.Option
	if *seed != 0 {
		opts = append(opts, srcnn.WithSeed(*seed))
	}
	model := srcnn.New(cpu.New(), opts...)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	meta := map[string]string{
		"parameters": strconv.Itoa(model.NumParameters()),
		"seed":       strconv.FormatUint(*seed, 10),
	}
	if err := checkpoint.Save(*out, model.StateDict(), meta); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	fmt.Fprintf(stdout, "wrote %s (%d parameters)\n", *out, model.NumParameters())
	return nil
}

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	weights := fs.String("weights", "", "weights file (default <exe dir>/extras/weights.safetensors)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *weights
	if path == "" {
		var err error
		if path, err = checkpoint.DefaultPath(); err != nil {
			return err
		}
	}
	if err := checkpoint.Stat(path); err != nil {
		return err
	}

	r, err := checkpoint.Open(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	defer func() {
		_ = r.Close()
	}()

	total := 0
	for _, name := range r.TensorNames() {
		info, _ := r.TensorInfo(name)
		n := tensor.Shape(info.Shape).NumElements()
		total += n
		fmt.Fprintf(stdout, "%-16s %-4s %v\n", name, info.DType, info.Shape)
	}
	fmt.Fprintf(stdout, "tensors: %d  parameters: %d (network: %d)\n", len(r.TensorNames()), total, srcnn.ParameterCount())

	if err := r.VerifyChecksum(); err != nil {
		return err
	}
	if mismatches := checkpoint.Mismatches(r); len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Fprintf(stdout, "mismatch: %v\n", m)
		}
		return fmt.Errorf("%s: %d entries do not match the network: %w", path, len(mismatches), checkpoint.ErrShapeMismatch)
	}
	return nil
}
