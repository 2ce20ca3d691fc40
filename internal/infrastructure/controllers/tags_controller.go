package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// TagsController handles the "tags" subcommand.
type TagsController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewTagsController creates a new TagsController.
func NewTagsController(state commands.StateManager, command commands.VersionControl) *TagsController {
	return &TagsController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the tags controller.
func (it *TagsController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "tags",
		Short: "List tags, newest version first, or tag the active branch",
	}
}

// Execute lists or creates tags.
func (it *TagsController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	create, _ := cmd.Flags().GetString("create")
	message, _ := cmd.Flags().GetString("message")

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}

	if create != "" {
		if err := it.command.CreateTag(ctx, repoCtx, create, message); err != nil {
			report("Failed to create tag", err)
			return
		}
		logger.Infof("Tagged %q as %s", repoCtx.BranchName(), create)
		return
	}

	tags, err := it.command.ListTags(ctx, repoCtx)
	if err != nil {
		report("Failed to list tags", err)
		return
	}
	printYAML(cmd, tags)
}

// AddFlags adds the tags-specific flags to the given Cobra command.
func (it *TagsController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("create", "", "Create a tag with this name on the active branch")
	cmd.Flags().StringP("message", "m", "", "Annotation message (lightweight tag when empty)")
}
