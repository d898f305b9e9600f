package backends

type BuiltInBackendType = string

const (
	LocalBackendType BuiltInBackendType = "local"
	MemBackendType   BuiltInBackendType = "mem"
	MinioBackendType BuiltInBackendType = "minio"
)

// RegisterBuiltins registers all built-in backends by default
// or only the specific ones if keys are provided
func RegisterBuiltins(backends ...BuiltInBackendType) {
	if len(backends) == 0 {
		// Include all built-in backends here when adding implementations
		backends = append(backends, LocalBackendType, MemBackendType, MinioBackendType)
	}

	for _, key := range backends {
		switch key {
		case LocalBackendType:
			RegisterLocal()
		case MemBackendType:
			RegisterMem()
		case MinioBackendType:
			RegisterMinio()
		}
	}
}
