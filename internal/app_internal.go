package internal

import (
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// AppInternal holds every controller exposed as a subcommand.
type AppInternal struct {
	controllers []entities.Controller
}

// NewAppInternal creates the AppInternal from the controllers gathered by the container.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: *controllers}
}

// GetControllers returns the registered controllers.
func (it *AppInternal) GetControllers() []entities.Controller {
	return it.controllers
}
