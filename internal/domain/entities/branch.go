package entities

// BranchStatus marks the branch currently active for a user.
type BranchStatus string

const (
	BranchStatusEnabled  BranchStatus = "Enabled"
	BranchStatusDisabled BranchStatus = "Disabled"
)

// Branch is a locally cached branch row of a repository.
// At most one branch per repository carries Default.
type Branch struct {
	ID      string
	RepoID  string
	Name    string
	Default bool
	Freeze  bool
	Share   bool
	Status  BranchStatus
}

// RemoteBranch is a branch as reported by the hosting provider.
type RemoteBranch struct {
	Name string
	SHA  string
}

// BranchInput holds the data needed to create a branch remotely and register it locally.
type BranchInput struct {
	Name       string
	StartPoint string
	Freeze     bool
	Share      bool
}

// RepoView is a repository merged with its local and remote branches.
type RepoView struct {
	Repository Repository
	Branches   []Branch
}

// FindBranch returns the branch with the given name, or nil.
func FindBranch(branches []Branch, name string) *Branch {
	for i := range branches {
		if branches[i].Name == name {
			return &branches[i]
		}
	}
	return nil
}

// DefaultBranchOf returns the default-flagged branch, or nil.
func DefaultBranchOf(branches []Branch) *Branch {
	for i := range branches {
		if branches[i].Default {
			return &branches[i]
		}
	}
	return nil
}
