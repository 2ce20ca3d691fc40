package controllers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// CommitsController handles the "commits" subcommand.
type CommitsController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewCommitsController creates a new CommitsController.
func NewCommitsController(state commands.StateManager, command commands.VersionControl) *CommitsController {
	return &CommitsController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the commits controller.
func (it *CommitsController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "commits [branch]",
		Short: "Show the history of a branch or the files changed by a commit",
		Long: `Show one page of the history of a branch (default: the active branch).
Use --page all for the whole history, --changes <commit> for the files a commit
changed and --latest for the head commit id.`,
	}
}

// Execute lists commits.
func (it *CommitsController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	page, _ := cmd.Flags().GetString("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	changes, _ := cmd.Flags().GetString("changes")
	latest, _ := cmd.Flags().GetBool("latest")

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}

	switch {
	case latest:
		commitID, err := it.command.GetLatestCommitID(ctx, repoCtx)
		if err != nil {
			report("Failed to resolve the latest commit", err)
			return
		}
		printYAML(cmd, map[string]string{"commit_id": commitID})
	case changes != "":
		printYAML(cmd, it.command.GetChangeFilenames(ctx, repoCtx, changes))
	default:
		branch := ""
		if len(args) > 0 {
			branch = args[0]
		}
		printYAML(cmd, it.command.GetCommits(ctx, repoCtx, branch, page, perPage))
	}
}

// AddFlags adds the commits-specific flags to the given Cobra command.
func (it *CommitsController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("page", "1", `Page number, or "all"`)
	cmd.Flags().Int("per-page", entities.DefaultPerPage, "Commits per page")
	cmd.Flags().String("changes", "", "List the files changed by this commit")
	cmd.Flags().Bool("latest", false, "Print the head commit id of the active branch")
}
