// Package cmd is the latke command line.
package cmd

import (
	"sync"

	"github.com/spf13/cobra"

	"latke.GO/core/registry"
)

var applyOnce sync.Once

// Register adds a command. Call from init() in custom packages. Panics if registry is locked.
func Register(c *cobra.Command) {
	if registry.GlobalRegistry.IsLocked(registry.KeyRegistryCmd) {
		panic("cmd/registry: locked (register only during init before Apply)")
	}
	registry.GlobalRegistry.SetGlobal(registry.KeyRegistryCmd, append(commands(), c))
}

func commands() []*cobra.Command {
	if v, ok := registry.GlobalRegistry.GetGlobal(registry.KeyRegistryCmd); ok && v != nil {
		return v.([]*cobra.Command)
	}
	return nil
}

// Apply adds all registered commands to root. Locks the cmd registry (immutable after).
// Later calls do nothing.
func Apply() {
	applyOnce.Do(func() {
		for _, c := range commands() {
			rootCmd.AddCommand(c)
		}
		registry.GlobalRegistry.Lock(registry.KeyRegistryCmd)
	})
}
