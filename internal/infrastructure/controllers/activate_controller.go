package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// ActivateController handles the "activate" subcommand.
type ActivateController struct {
	state commands.StateManager
}

// NewActivateController creates a new ActivateController.
func NewActivateController(state commands.StateManager) *ActivateController {
	return &ActivateController{state: state}
}

// GetBind returns the Cobra command metadata for the activate controller.
func (it *ActivateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "activate <repo-id> [branch]",
		Short: "Select the repository and branch to work on",
		Long: `Select a repository for the acting user within the project, replacing any
previous selection. Without a branch the repository default is used; a branch
that does not exist yet is created from the default branch.`,
	}
}

// Execute activates a repository.
func (it *ActivateController) Execute(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		logger.Error("A repository id is required")
		return
	}
	branch := ""
	if len(args) > 1 {
		branch = args[1]
	}

	record, err := it.state.Activate(context.Background(), identityFrom(cmd), args[0], branch)
	if err != nil {
		report("Failed to activate repository", err)
		return
	}
	printYAML(cmd, record)
}

func (it *ActivateController) AddFlags(_ *cobra.Command) {}

// DeactivateController handles the "deactivate" subcommand.
type DeactivateController struct {
	state commands.StateManager
}

// NewDeactivateController creates a new DeactivateController.
func NewDeactivateController(state commands.StateManager) *DeactivateController {
	return &DeactivateController{state: state}
}

// GetBind returns the Cobra command metadata for the deactivate controller.
func (it *DeactivateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "deactivate",
		Short: "Drop the acting user's repository selection",
	}
}

// Execute deactivates the active repository.
func (it *DeactivateController) Execute(cmd *cobra.Command, _ []string) {
	identity := identityFrom(cmd)
	if err := it.state.Deactivate(context.Background(), identity.ProjectID, identity.Username); err != nil {
		report("Failed to deactivate repository", err)
	}
}

func (it *DeactivateController) AddFlags(_ *cobra.Command) {}
