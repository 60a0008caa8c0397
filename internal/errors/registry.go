package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Navigation Errors (E001-E003)
	// ============================================

	"E001": {
		Category: CategoryNavigation,
		Message:  "No route matches URL",
		Detail:   "None of the registered route patterns matched the URL. Register a catch-all route (e.g. \"/*\") last so every URL resolves.",
	},
	"E002": {
		Category: CategoryNavigation,
		Message:  "Route module failed to load",
		Detail:   "Loading the page module for the resolved route failed. The previous location stays committed.",
	},
	"E003": {
		Category: CategoryNavigation,
		Message:  "Page metadata fetch failed",
		Detail:   "Fetching metadata for the target URL failed. The previous location stays committed.",
	},

	// ============================================
	// Resource Errors (E004, E006)
	// ============================================

	"E004": {
		Category: CategoryResource,
		Message:  "Resource computation failed",
		Detail:   "The resource compute function returned an error. Every access to this key reports the same error until the session ends.",
	},
	"E006": {
		Category: CategoryResource,
		Message:  "Seeded resource could not be decoded",
		Detail:   "A value embedded by the server could not be decoded into the type requested by the client.",
	},

	// ============================================
	// Hydration Errors (E005)
	// ============================================

	"E005": {
		Category: CategoryHydration,
		Message:  "Hydration mismatch",
		Detail:   "The first client render of the document head differs from the server-rendered head.",
	},

	// ============================================
	// Config Errors (E020-E029)
	// ============================================

	"E020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The project configuration file could not be read or parsed.",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No firebolt.json, firebolt.toml or firebolt.yaml was found in the project directory or any parent.",
	},
	"E022": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "Port must be between 0 and 65535.",
	},
	"E023": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .toml, .yaml or .yml.",
	},

	// ============================================
	// CLI Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryCLI,
		Message:  "Build failed",
		Detail:   "The go build command exited with an error.",
	},
	"E031": {
		Category: CategoryCLI,
		Message:  "Server binary not found",
		Detail:   "The start command needs a binary produced by 'firebolt build'.",
	},
	"E032": {
		Category: CategoryCLI,
		Message:  "Publish failed",
		Detail:   "Uploading build output to object storage failed.",
	},
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
