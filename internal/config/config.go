// Package config holds the plain configuration structs passed
// explicitly to the driver and auto-scheduler, in the style of a
// workflow-engine ServerConfig: a struct plus a Default*Config
// constructor, never read from globals or the environment.
package config

// MachineParams are the auto-scheduler's cost-model constants.
type MachineParams struct {
	Parallelism        int
	VectorLength        int
	InlineFastMemBytes  int64
	FastMemBytes        int64
	CostBalanceFastMem  float64
	CostBalanceInline   float64
}

// DefaultMachineParams returns a reasonable single-machine baseline.
func DefaultMachineParams() MachineParams {
	return MachineParams{
		Parallelism:        8,
		VectorLength:        8,
		InlineFastMemBytes:  128,
		FastMemBytes:        256 * 1024,
		CostBalanceFastMem:  10,
		CostBalanceInline:   4,
	}
}

// DriverConfig is the top-level configuration for the
// internal/driver.Driver entry points.
type DriverConfig struct {
	InjectExplicitBoundsAsserts bool
	LogLevel                    string
	LogFormat                   string
}

// DefaultDriverConfig returns sensible defaults for local runs.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		InjectExplicitBoundsAsserts: true,
		LogLevel:                    "info",
		LogFormat:                   "text",
	}
}

// AutoSchedulerConfig bundles the toggles the auto-scheduler driver
// entry point needs.
type AutoSchedulerConfig struct {
	RootDefault bool
	AutoInline  bool
	AutoPar     bool
	AutoVec     bool
	Machine     MachineParams
}

// DefaultAutoSchedulerConfig turns on every toggle, the common case for
// a pipeline with no user-supplied schedule at all.
func DefaultAutoSchedulerConfig() AutoSchedulerConfig {
	return AutoSchedulerConfig{
		RootDefault: true,
		AutoInline:  true,
		AutoPar:     true,
		AutoVec:     true,
		Machine:     DefaultMachineParams(),
	}
}
