// Package logging builds the process slog.Logger from config.LoggingConfig.
package logging
