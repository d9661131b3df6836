//go:build opencl
// +build opencl

package gpu

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jgillich/go-opencl/cl"

	"github.com/ehrlich-b/go-eyot/internal/constants"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/logging"
)

// driver is the singleton connection to the compute device. One program
// covers all generated kernel code; workers fish their kernels out of it.
type driver struct {
	device  *cl.Device
	context *cl.Context
	program *cl.Program
	verbose bool
}

var (
	driverMu  sync.Mutex
	singleton *driver
)

// Init compiles the runtime's kernel source and establishes the driver.
// An empty source disables GPU support. Missing platforms or devices are
// expected failure cases and leave the driver absent; a source that fails
// to compile is fatal.
func Init(src string) {
	driverMu.Lock()
	defer driverMu.Unlock()

	if src == "" {
		singleton = nil
		return
	}
	singleton = createDriver(src)
}

// Available reports whether a usable driver exists
func Available() bool {
	driverMu.Lock()
	defer driverMu.Unlock()
	return singleton != nil
}

func current() *driver {
	driverMu.Lock()
	defer driverMu.Unlock()
	return singleton
}

func createDriver(src string) *driver {
	if os.Getenv(constants.EnvDisableCl) == "y" {
		return nil
	}

	verbose := os.Getenv(constants.EnvVerbose) == "y"
	if verbose {
		fmt.Print(src)
	}

	platforms, err := cl.GetPlatforms()
	if err != nil {
		// an expected failure case when cl is installed but there are no
		// platforms, stay quiet unless asked
		logging.Debug("gpu platform query failed", "err", err)
		return nil
	}
	if len(platforms) == 0 {
		logging.Info("no cl platforms found")
		return nil
	}

	if verbose {
		fmt.Printf("OpenCL driver initialising. %d platforms found (will choose 0)\n", len(platforms))
		for i, p := range platforms {
			fmt.Printf("  %d: %s %s %s\n", i, p.Vendor(), p.Name(), p.Version())
		}
	}

	devices, err := platforms[0].GetDevices(cl.DeviceTypeGPU)
	if err != nil || len(devices) == 0 {
		// likewise expected when no viable device is attached
		logging.Debug("gpu device query failed", "err", err)
		return nil
	}

	d := &driver{
		device:  devices[0],
		verbose: verbose,
	}

	d.context, err = cl.CreateContext(devices[:1])
	if err != nil {
		logging.Error("gpu context creation failed", "err", err)
		return nil
	}

	d.program, err = d.context.CreateProgramWithSource([]string{src})
	if err != nil {
		fault.Panicf("gpu.init", fault.CodeGPUInit, "failed to create program: %v", err)
	}

	if err := d.program.BuildProgram(nil, ""); err != nil {
		printWithLineNumbers(src)
		fmt.Println("gpu.init: failed to build program executable")
		fmt.Println(err.Error())
		fault.Panic("gpu.init", fault.CodeGPUInit, "failed to compile program")
	}

	return d
}

// printWithLineNumbers dumps kernel source the way compilers report it,
// so build log line references can be followed
func printWithLineNumbers(src string) {
	for i, line := range strings.Split(src, "\n") {
		fmt.Printf("%d: %s\n", i+1, line)
	}
}
