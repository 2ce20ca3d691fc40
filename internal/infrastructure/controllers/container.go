package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	constructors := []any{
		NewReposController,
		NewAddController,
		NewValidateController,
		NewCreateController,
		NewActivateController,
		NewDeactivateController,
		NewBranchesController,
		NewFilesController,
		NewReadController,
		NewWriteController,
		NewDownloadController,
		NewCommitsController,
		NewTagsController,
		NewControllers,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}
	return nil
}

// ControllersParams gathers every controller for the AppInternal.
type ControllersParams struct {
	dig.In

	Repos      *ReposController
	Add        *AddController
	Validate   *ValidateController
	Create     *CreateController
	Activate   *ActivateController
	Deactivate *DeactivateController
	Branches   *BranchesController
	Files      *FilesController
	Read       *ReadController
	Write      *WriteController
	Download   *DownloadController
	Commits    *CommitsController
	Tags       *TagsController
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(params ControllersParams) *[]entities.Controller {
	return &[]entities.Controller{
		params.Repos,
		params.Add,
		params.Validate,
		params.Create,
		params.Activate,
		params.Deactivate,
		params.Branches,
		params.Files,
		params.Read,
		params.Write,
		params.Download,
		params.Commits,
		params.Tags,
	}
}
