// Package logging configures the service's structured logger: a text
// slog.Handler writing to a rotating file, stdout, or both depending
// on the print_logs and systemd_mode settings.
package logging
