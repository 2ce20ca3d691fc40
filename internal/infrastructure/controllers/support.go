package controllers

import (
	"context"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

const (
	projectEnv = "GITBRIDGE_PROJECT"
	userEnv    = "GITBRIDGE_USER"
	emailEnv   = "GITBRIDGE_EMAIL"
)

// AddIdentityFlags adds the acting-user flags shared by every subcommand.
func AddIdentityFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("project", "", "Project id (default: $"+projectEnv+")")
	cmd.PersistentFlags().String("user", "", "Acting username (default: $"+userEnv+")")
	cmd.PersistentFlags().String("email", "", "Commit author email (default: $"+emailEnv+")")
	cmd.PersistentFlags().String("name", "", "Commit author display name")
	cmd.PersistentFlags().String("role", string(entities.AccessLevelEditor), "Project role (VALIDATOR, EDITOR, VIEWER)")
}

// identityFrom builds the acting user from flags, falling back to the environment.
func identityFrom(cmd *cobra.Command) entities.Identity {
	flag := func(name, env string) string {
		value, _ := cmd.Flags().GetString(name)
		if value == "" && env != "" {
			value = os.Getenv(env)
		}
		return value
	}
	return entities.Identity{
		UserID:      flag("user", userEnv),
		Username:    flag("user", userEnv),
		Email:       flag("email", emailEnv),
		DisplayName: flag("name", ""),
		ProjectID:   flag("project", projectEnv),
		AccessLevel: entities.AccessLevel(strings.ToUpper(flag("role", ""))),
	}
}

// activeContext resolves the acting user's active repository, logging failures.
func activeContext(cmd *cobra.Command, state commands.StateManager) (*commands.RepoContext, bool) {
	repoCtx, err := state.ActiveContext(context.Background(), identityFrom(cmd))
	if err != nil {
		report("Failed to resolve the active repository", err)
		return nil, false
	}
	return repoCtx, true
}

// printYAML writes value to the command output.
func printYAML(cmd *cobra.Command, value any) {
	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		logger.Errorf("Failed to render output: %v", err)
	}
	_ = encoder.Close()
}

// report logs err together with the HTTP status an API layer would answer with.
func report(message string, err error) {
	logger.WithField("status", entities.HTTPStatusFor(err)).Errorf("%s: %v", message, err)
}
