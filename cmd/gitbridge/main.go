package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/controllers"
)

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "gitbridge",
		Short: "One interface over GitHub, GitLab, Bitbucket Server and Azure DevOps repositories",
		Long: `Register remote Git repositories in a project, activate one per user and
work with it (branches, files, commits, tags) through the same commands whatever
the hosting provider is.

Settings are read from $GITBRIDGE_CONFIG, ./gitbridge.yaml or
~/.config/gitbridge.yaml. The acting user is taken from --project/--user or
$GITBRIDGE_PROJECT/$GITBRIDGE_USER.`,
		PersistentPreRun: func(command *cobra.Command, _ []string) {
			if verbose, _ := command.Flags().GetBool("verbose"); verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	controllers.AddIdentityFlags(cmd)
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}
		ctrl.AddFlags(subCmd)
		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()
	addSubcommands(cobraRoot, injectAppContext())

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'gitbridge': %s", err)
	}
}
