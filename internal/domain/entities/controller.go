package entities

import "github.com/spf13/cobra"

// ControllerBind holds the Cobra metadata of a controller.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is a CLI entry point registered as a subcommand.
type Controller interface {
	GetBind() ControllerBind
	AddFlags(cmd *cobra.Command)
	Execute(cmd *cobra.Command, arguments []string)
}
