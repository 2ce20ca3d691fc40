package controllers

import (
	"context"
	"os"
	"path/filepath"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// FilesController handles the "files" subcommand.
type FilesController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewFilesController creates a new FilesController.
func NewFilesController(state commands.StateManager, command commands.VersionControl) *FilesController {
	return &FilesController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the files controller.
func (it *FilesController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "files [path]",
		Short: "List one level of the active branch",
	}
}

// Execute lists a directory.
func (it *FilesController) Execute(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	dirPath := ""
	if len(args) > 0 {
		dirPath = args[0]
	}

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}
	entries, err := it.command.ListRepo(context.Background(), repoCtx, dirPath, limit)
	if err != nil {
		report("Failed to list files", err)
		return
	}
	printYAML(cmd, entries)
}

// AddFlags adds the files-specific flags to the given Cobra command.
func (it *FilesController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "Maximum number of entries (0 for all)")
}

// ReadController handles the "read" subcommand.
type ReadController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewReadController creates a new ReadController.
func NewReadController(state commands.StateManager, command commands.VersionControl) *ReadController {
	return &ReadController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the read controller.
func (it *ReadController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "read <path>",
		Short: "Read a file at a branch or commit",
		Long: `Read a file of the active repository. Content is base64-encoded unless --raw
is given; notebooks read raw are parsed as JSON. Binary files are always base64.`,
	}
}

// Execute reads a file.
func (it *ReadController) Execute(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		logger.Error("A file path is required")
		return
	}
	ref, _ := cmd.Flags().GetString("ref")
	commit, _ := cmd.Flags().GetBool("commit")
	raw, _ := cmd.Flags().GetBool("raw")

	refType := entities.RefTypeBranch
	if commit {
		refType = entities.RefTypeCommit
	}

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}
	content, err := it.command.ReadFile(context.Background(), repoCtx, entities.ReadFileInput{
		Path: args[0], Ref: ref, RefType: refType, Raw: raw,
	})
	if err != nil {
		report("Failed to read file", err)
		return
	}
	printYAML(cmd, content)
}

// AddFlags adds the read-specific flags to the given Cobra command.
func (it *ReadController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("ref", "", "Branch or commit to read at (default: the active branch)")
	cmd.Flags().Bool("commit", false, "Treat --ref as a commit id")
	cmd.Flags().Bool("raw", false, "Return decoded content")
}

// WriteController handles the "write" subcommand.
type WriteController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewWriteController creates a new WriteController.
func NewWriteController(state commands.StateManager, command commands.VersionControl) *WriteController {
	return &WriteController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the write controller.
func (it *WriteController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "write <path> <local-file>",
		Short: "Commit a local file to the active branch",
	}
}

// Execute writes a file.
func (it *WriteController) Execute(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		logger.Error("A repository path and a local file are required")
		return
	}
	message, _ := cmd.Flags().GetString("message")

	data, err := os.ReadFile(filepath.Clean(args[1]))
	if err != nil {
		logger.Errorf("Failed to read %q: %v", args[1], err)
		return
	}

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}
	updated, err := it.command.UpdateFile(context.Background(), repoCtx, args[0], string(data), message)
	if err != nil {
		report("Failed to update file", err)
		return
	}
	printYAML(cmd, updated)
}

// AddFlags adds the write-specific flags to the given Cobra command.
func (it *WriteController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("message", "m", "", "Commit message")
}

// DownloadController handles the "download" subcommand.
type DownloadController struct {
	state   commands.StateManager
	command commands.VersionControl
}

// NewDownloadController creates a new DownloadController.
func NewDownloadController(state commands.StateManager, command commands.VersionControl) *DownloadController {
	return &DownloadController{state: state, command: command}
}

// GetBind returns the Cobra command metadata for the download controller.
func (it *DownloadController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "download <path>",
		Short: "Download a file, or a folder as a zip archive",
	}
}

// Execute downloads a file or folder.
func (it *DownloadController) Execute(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		logger.Error("A path is required")
		return
	}
	folder, _ := cmd.Flags().GetBool("folder")
	branch, _ := cmd.Flags().GetString("branch")
	output, _ := cmd.Flags().GetString("output")

	repoCtx, ok := activeContext(cmd, it.state)
	if !ok {
		return
	}

	var download *entities.Download
	var err error
	if folder {
		download, err = it.command.DownloadFolder(context.Background(), repoCtx, args[0], branch)
	} else {
		download, err = it.command.DownloadFile(context.Background(), repoCtx, args[0], branch)
	}
	if err != nil {
		report("Failed to download", err)
		return
	}

	if output == "" {
		output = download.Name
	}
	if err = os.WriteFile(output, download.Data, 0o600); err != nil {
		logger.Errorf("Failed to write %q: %v", output, err)
		return
	}
	logger.Infof("Saved %s (%d bytes)", output, len(download.Data))
}

// AddFlags adds the download-specific flags to the given Cobra command.
func (it *DownloadController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("folder", false, "Download a folder as a zip archive")
	cmd.Flags().String("branch", "", "Branch to download from (default: the active branch)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: the file or folder name)")
}
