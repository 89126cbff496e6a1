// File: cmd/version.go
package cmd

// Version is the application version.
// Intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/TechNavii/computer-use-demo/cmd.Version=1.0.0"
var Version = "0.1.0"
