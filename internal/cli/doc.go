// Package cli provides command-line interface setup and configuration
// for the firetrans application. It handles flag parsing, command
// creation, configuration management using cobra and viper, and wires
// the configured translator and store into a session.
package cli
