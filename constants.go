package eyot

import "github.com/ehrlich-b/go-eyot/internal/constants"

// Re-export constants for public API
const (
	InitialPipeCapacity = constants.InitialPipeCapacity
	LocalWorkgroupSize  = constants.LocalWorkgroupSize
	SharedBufferSize    = constants.SharedBufferSize
	SharedStride        = constants.SharedStride
	PointerAlignment    = constants.PointerAlignment
	EnvDebug            = constants.EnvDebug
	EnvVerbose          = constants.EnvVerbose
	EnvDisableCl        = constants.EnvDisableCl
)
