package controllers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// ReposController handles the "repos" subcommand.
type ReposController struct {
	state commands.StateManager
}

// NewReposController creates a new ReposController.
func NewReposController(state commands.StateManager) *ReposController {
	return &ReposController{state: state}
}

// GetBind returns the Cobra command metadata for the repos controller.
func (it *ReposController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "repos",
		Short: "List the project's repositories and branches",
		Long: `List the repositories registered in the project. Cached branches are merged
with the provider's live branch list and the acting user's active branch is
marked as Enabled.`,
	}
}

// Execute lists repositories.
func (it *ReposController) Execute(cmd *cobra.Command, _ []string) {
	status, _ := cmd.Flags().GetString("status")

	views, err := it.state.ListGitRepo(context.Background(), identityFrom(cmd), entities.RepoStatus(status))
	if err != nil {
		report("Failed to list repositories", err)
		return
	}
	printYAML(cmd, views)
}

// AddFlags adds the repos-specific flags to the given Cobra command.
func (it *ReposController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "Only list repositories with this status (Enabled, Disabled)")
}
