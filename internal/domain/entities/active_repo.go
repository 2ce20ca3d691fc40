package entities

// ActiveRepo records which repository and branch a user has selected within a project.
// There is at most one row per (ProjectID, Username).
type ActiveRepo struct {
	ID        string
	ProjectID string
	Username  string
	RepoID    string
	BranchID  string
}

// AccessLevel is the acting user's role within a project.
type AccessLevel string

const (
	AccessLevelValidator AccessLevel = "VALIDATOR"
	AccessLevelEditor    AccessLevel = "EDITOR"
	AccessLevelViewer    AccessLevel = "VIEWER"
)

// Identity carries the acting user for commit authorship and policy decisions.
type Identity struct {
	UserID      string
	Username    string
	Email       string
	DisplayName string
	ProjectID   string
	AccessLevel AccessLevel
}

// AuthorName falls back to the username when no display name is set.
func (i Identity) AuthorName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Username
}
