package commands

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register command constructors
	if err := container.Provide(NewCredentialResolver); err != nil {
		return err
	}
	if err := container.Provide(NewStateManagerCommand); err != nil {
		return err
	}
	if err := container.Provide(NewVersionControlCommand); err != nil {
		return err
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *StateManagerCommand) StateManager {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *VersionControlCommand) VersionControl {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
