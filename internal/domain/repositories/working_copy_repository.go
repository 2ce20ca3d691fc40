package repositories

import (
	"context"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// WorkingCopyRepository runs git operations against a local clone. It is used
// where a provider has no content API for the operation.
type WorkingCopyRepository interface {
	// Clone clones one branch into input.Dir.
	Clone(ctx context.Context, input entities.CloneInput) error

	// CommitAndPush stages everything, commits as the author and pushes to the branch.
	// A push blocked by a server-side policy is soft-reset and yields entities.ErrPushRejected.
	CommitAndPush(ctx context.Context, input entities.CommitInput) (string, error)

	// CloneAndPush applies the changes in a temporary clone that is always removed.
	CloneAndPush(ctx context.Context, input entities.CloneAndPushInput) (string, error)

	// CreateTag tags the head of a branch and pushes the tag.
	CreateTag(ctx context.Context, input entities.TagInput) error

	// ListTags returns the remote tags, newest version first.
	ListTags(ctx context.Context, remote entities.Remote) ([]string, error)
}
