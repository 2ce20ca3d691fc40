package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

func addRepositoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Repository URL")
	cmd.Flags().String("type", "", "Provider (github, gitlab, bitbucket, azuredevops)")
	cmd.Flags().String("repo-name", "", "Repository name")
	cmd.Flags().String("username", "", "Repository username")
	cmd.Flags().String("password", "", "Repository password or token")
	cmd.Flags().Bool("public", false, "Use the platform service account")
	cmd.Flags().String("branch", "main", "Branch to validate and use as default")
	cmd.Flags().String("base-folder", "", "Folder listed by default")
	cmd.Flags().String("proxy", "", "Proxy address (host:port)")
	cmd.Flags().String("proxy-protocol", "http", "Proxy protocol")
	cmd.Flags().Bool("proxy-ssl-verify", true, "Verify TLS certificates through the proxy")
	cmd.Flags().String("proxy-username", "", "Proxy username")
	cmd.Flags().String("proxy-password", "", "Proxy password")
}

func repositoryFromFlags(cmd *cobra.Command) (commands.ValidateRepoInput, bool) {
	flag := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return value
	}
	public, _ := cmd.Flags().GetBool("public")
	sslVerify, _ := cmd.Flags().GetBool("proxy-ssl-verify")

	repoType, ok := entities.ParseRepoType(flag("type"))
	if !ok {
		logger.Errorf("Unknown provider type %q", flag("type"))
		return commands.ValidateRepoInput{}, false
	}

	repo := entities.Repository{
		URL:            flag("url"),
		Username:       flag("username"),
		Password:       flag("password"),
		Name:           flag("repo-name"),
		Type:           repoType,
		AccessCategory: entities.AccessCategoryPrivate,
		BaseFolder:     flag("base-folder"),
		DefaultBranch:  flag("branch"),
	}
	if public {
		repo.AccessCategory = entities.AccessCategoryPublic
	}
	if address := flag("proxy"); address != "" {
		repo.Proxy = &entities.ProxyDetails{
			IPAddress: address,
			Protocol:  flag("proxy-protocol"),
			SSLVerify: sslVerify,
			Username:  flag("proxy-username"),
			Password:  flag("proxy-password"),
		}
	}
	return commands.ValidateRepoInput{Repository: repo, Branch: repo.DefaultBranch}, true
}

// AddController handles the "add" subcommand.
type AddController struct {
	command commands.VersionControl
}

// NewAddController creates a new AddController.
func NewAddController(command commands.VersionControl) *AddController {
	return &AddController{command: command}
}

// GetBind returns the Cobra command metadata for the add controller.
func (it *AddController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "add",
		Short: "Validate and register a repository in the project",
		Long: `Validate a repository (credentials, branch and write access) and register
it in the project. Credentials are stored in the OS keyring; the database only
keeps references to them.`,
	}
}

// Execute registers a repository.
func (it *AddController) Execute(cmd *cobra.Command, _ []string) {
	input, ok := repositoryFromFlags(cmd)
	if !ok {
		return
	}
	repo, err := it.command.AddGitRepo(context.Background(), identityFrom(cmd), input)
	if err != nil {
		report("Failed to register repository", err)
		return
	}
	printYAML(cmd, repo)
}

// AddFlags adds the add-specific flags to the given Cobra command.
func (it *AddController) AddFlags(cmd *cobra.Command) {
	addRepositoryFlags(cmd)
}

// ValidateController handles the "validate" subcommand.
type ValidateController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewValidateController creates a new ValidateController.
func NewValidateController(state commands.StateManager, command commands.VersionControl) *ValidateController {
	return &ValidateController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the validate controller.
func (it *ValidateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "validate",
		Short: "Check write access to the active repository or to a repository given by flags",
	}
}

// Execute validates repository access.
func (it *ValidateController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	url, _ := cmd.Flags().GetString("url")

	if url != "" {
		input, ok := repositoryFromFlags(cmd)
		if !ok {
			return
		}
		if err := it.command.ValidateRepo(ctx, identityFrom(cmd), input); err != nil {
			report("Repository validation failed", err)
			return
		}
		logger.Info("Success")
		return
	}

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}
	if err := it.command.ValidateRepoAccess(ctx, repoCtx); err != nil {
		report("Repository access validation failed", err)
		return
	}
	logger.Info("Success")
}

// AddFlags adds the validate-specific flags to the given Cobra command.
func (it *ValidateController) AddFlags(cmd *cobra.Command) {
	addRepositoryFlags(cmd)
}

// CreateController handles the "create" subcommand.
type CreateController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewCreateController creates a new CreateController.
func NewCreateController(state commands.StateManager, command commands.VersionControl) *CreateController {
	return &CreateController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the create controller.
func (it *CreateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "create <name>",
		Short: "Create a remote repository with the default provider, or rename the active one",
	}
}

// Execute creates or renames a repository.
func (it *CreateController) Execute(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		logger.Error("A repository name is required")
		return
	}
	rename, _ := cmd.Flags().GetBool("rename")
	ctx := context.Background()

	if !rename {
		created, err := it.command.CreateRepo(ctx, identityFrom(cmd), args[0])
		if err != nil {
			report("Failed to create repository", err)
			return
		}
		printYAML(cmd, created)
		return
	}

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}
	renamed, err := it.command.RenameRepo(ctx, repoCtx, repoCtx.Repository.Name, args[0])
	if err != nil {
		report("Failed to rename repository", err)
		return
	}
	printYAML(cmd, renamed)
}

// AddFlags adds the create-specific flags to the given Cobra command.
func (it *CreateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("rename", false, "Rename the active repository instead")
}
