package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// BranchesController handles the "branches" subcommand.
type BranchesController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewBranchesController creates a new BranchesController.
func NewBranchesController(state commands.StateManager, command commands.VersionControl) *BranchesController {
	return &BranchesController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the branches controller.
func (it *BranchesController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "branches",
		Short: "List, create or set the default branch of the active repository",
		Long: `List the branches of the active repository as reported by the provider.
With --create a branch is created from --from (default: the repository default
branch). With --default the cached branch becomes the repository default.`,
	}
}

// Execute runs the requested branch operation.
func (it *BranchesController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	create, _ := cmd.Flags().GetString("create")
	from, _ := cmd.Flags().GetString("from")
	freeze, _ := cmd.Flags().GetBool("freeze")
	share, _ := cmd.Flags().GetBool("share")
	defaultID, _ := cmd.Flags().GetString("default")

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}

	switch {
	case defaultID != "":
		if err := it.state.SetDefaultBranch(ctx, repoCtx.Repository.ID, defaultID); err != nil {
			report("Failed to set the default branch", err)
			return
		}
		logger.Infof("Branch %s is now the default of %q", defaultID, repoCtx.Repository.Name)
	case create != "":
		branch, err := it.command.CreateBranch(ctx, repoCtx, entities.BranchInput{
			Name: create, StartPoint: from, Freeze: freeze, Share: share,
		})
		if err != nil {
			report("Failed to create branch", err)
			return
		}
		printYAML(cmd, branch)
	default:
		branches, err := it.command.ListBranches(ctx, repoCtx)
		if err != nil {
			report("Failed to list branches", err)
			return
		}
		printYAML(cmd, branches)
	}
}

// AddFlags adds the branches-specific flags to the given Cobra command.
func (it *BranchesController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("create", "", "Create a branch with this name")
	cmd.Flags().String("from", "", "Start point of the new branch")
	cmd.Flags().Bool("freeze", false, "Flag the new branch as frozen")
	cmd.Flags().Bool("share", false, "Flag the new branch as shared")
	cmd.Flags().String("default", "", "Make the cached branch with this id the default")
}
