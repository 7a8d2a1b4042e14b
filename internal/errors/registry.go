package errors

import "sort"

// Registered error codes.
const (
	CodeServiceNotFound   = "R001"
	CodeStoreNotFound     = "R002"
	CodeStoreTypeMismatch = "R003"

	CodeReentrancyLimit = "R010"

	CodeFetchFailed = "R020"
	CodeFetchPanic  = "R021"

	CodeConfigInvalid = "R030"
	CodeConfigRead    = "R031"
	CodeSnapshotWrite = "R032"
	CodeSnapshotRead  = "R033"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Lookup Errors (R001-R009)
	// ============================================

	CodeServiceNotFound: {
		Category: CategoryLookup,
		Message:  "service not found",
		Detail:   "No service is registered under this key. Services must be registered with service.Register before they are resolved.",
	},
	CodeStoreNotFound: {
		Category: CategoryLookup,
		Message:  "store not found",
		Detail:   "No store is registered under this key. Stores are registered by store.Create.",
	},
	CodeStoreTypeMismatch: {
		Category: CategoryLookup,
		Message:  "store value type mismatch",
		Detail:   "A store is registered under this key but holds a different value type than the one requested.",
	},

	// ============================================
	// Runtime Errors (R010-R019)
	// ============================================

	CodeReentrancyLimit: {
		Category: CategoryRuntime,
		Message:  "nested notification limit exceeded",
		Detail:   "A subscriber kept setting the cell it observes. The value was stored but the nested notification was dropped.",
	},

	// ============================================
	// Fetch Errors (R020-R029)
	// ============================================

	CodeFetchFailed: {
		Category: CategoryFetch,
		Message:  "fetch failed",
		Detail:   "The service method returned an error.",
	},
	CodeFetchPanic: {
		Category: CategoryFetch,
		Message:  "fetch panicked",
		Detail:   "The service method panicked. The panic value was converted into an error.",
	},

	// ============================================
	// Config Errors (R030-R039)
	// ============================================

	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "invalid configuration",
		Detail:   "The configuration file could not be parsed or failed validation.",
	},
	CodeConfigRead: {
		Category: CategoryConfig,
		Message:  "cannot read configuration",
		Detail:   "The configuration file exists but could not be read.",
	},
	CodeSnapshotWrite: {
		Category: CategoryCLI,
		Message:  "snapshot export failed",
		Detail:   "The store snapshot could not be written to its destination.",
	},
	CodeSnapshotRead: {
		Category: CategoryCLI,
		Message:  "snapshot restore failed",
		Detail:   "The snapshot document could not be decoded or applied to the registered stores.",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
