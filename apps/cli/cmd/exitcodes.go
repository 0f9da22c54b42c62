package cmd

// Exit codes for the autoapi CLI
const (
	// ExitSuccess indicates the command completed cleanly
	ExitSuccess = 0

	// ExitValidationError indicates one or more case files failed validation
	ExitValidationError = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
