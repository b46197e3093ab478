package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Protocol Errors (S001-S009)
	// ============================================

	"S001": {
		Category:   CategoryProtocol,
		Message:    "Action called from within a modifier",
		Detail:     "A modifier is running on this silo. Dispatching another action on the same silo would corrupt the old/new comparison and the notification order.",
		Suggestion: "Compute the whole transition in one modifier, or dispatch from a subscriber after the first action has returned",
	},
	"S002": {
		Category:   CategoryProtocol,
		Message:    "Subscribe called from within a modifier",
		Detail:     "Modifiers must be pure functions of state and payload. Registering subscribers is a side effect.",
		Suggestion: "Subscribe before dispatching, or from a subscriber callback",
	},
	"S003": {
		Category:   CategoryProtocol,
		Message:    "Unsubscribe called from within a modifier",
		Detail:     "Modifiers must be pure functions of state and payload. Removing subscribers is a side effect.",
		Suggestion: "Unsubscribe from a subscriber callback or after the action returns",
	},
	"S004": {
		Category:   CategoryProtocol,
		Message:    "Destroy called from within a modifier",
		Detail:     "A silo cannot be destroyed while one of its modifiers is running.",
		Suggestion: "Destroy the silo after the action returns",
	},
	"S005": {
		Category:   CategoryProtocol,
		Message:    "Action bound from within a modifier",
		Detail:     "The action table of a silo cannot change while one of its modifiers is running.",
		Suggestion: "Bind all actions when the silo is created",
	},

	// ============================================
	// Dispatch Errors (S010-S019)
	// ============================================

	"S010": {
		Category:   CategoryDispatch,
		Message:    "Unknown action",
		Detail:     "No action with this name is bound to the silo.",
		Suggestion: "Check Actions() for the names bound to the silo",
	},
	"S011": {
		Category:   CategoryDispatch,
		Message:    "Action payload type mismatch",
		Detail:     "The payload passed to Dispatch is not assignable to the action's payload type.",
	},
	"S012": {
		Category:   CategoryDispatch,
		Message:    "Duplicate action name",
		Detail:     "An action with this name is already bound to the silo.",
		Suggestion: "Give every action on a silo a unique name",
	},

	// ============================================
	// Config Errors (S020-S029)
	// ============================================

	"S020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file contains invalid values.",
	},
	"S021": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "No silo.json or silo.yaml was found.",
		Suggestion: "Run 'silo init' to create a default configuration",
	},
	"S022": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be parsed",
	},
	"S023": {
		Category:   CategoryConfig,
		Message:    "Unsupported configuration format",
		Detail:     "Configuration files must end in .json, .yaml or .yml.",
		Suggestion: "Rename the file or convert it to JSON or YAML",
	},

	// ============================================
	// CLI Errors (S030-S039)
	// ============================================

	"S030": {
		Category:   CategoryCLI,
		Message:    "Unknown benchmark profile",
		Suggestion: "Use one of: fast, standard, stress",
	},
	"S031": {
		Category: CategoryCLI,
		Message:  "Metrics endpoint failed",
		Detail:   "The metrics HTTP server could not be started.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
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
