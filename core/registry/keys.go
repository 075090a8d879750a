package registry

// Core keys for GlobalRegistry and RequestRegistry.
const (
	// RequestRegistry keys (per-request)
	KeyRequestStart = "request_start"
	KeyRequestID    = "request_id"

	// Extension registries (cmd, cron, beans) — stored in GlobalRegistry
	KeyRegistryCmd   = "registry:cmd"
	KeyRegistryCron  = "registry:cron"
	KeyRegistryBeans = "registry:beans"
)
