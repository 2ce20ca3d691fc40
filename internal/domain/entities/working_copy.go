package entities

// FileChangeType is the kind of modification applied to a working copy.
type FileChangeType string

const (
	FileChangeAdd    FileChangeType = "add"
	FileChangeEdit   FileChangeType = "edit"
	FileChangeDelete FileChangeType = "delete"
)

// FileChange represents a file modification to be included in a commit.
type FileChange struct {
	Path       string
	Content    []byte
	ChangeType FileChangeType
}

// Remote is everything needed to reach a repository over git.
type Remote struct {
	URL         string
	Credentials Credentials
	Proxy       *ResolvedProxy
}

// CloneInput describes a full clone of one branch into Dir.
type CloneInput struct {
	Dir    string
	Remote Remote
	Branch string
}

// CommitInput describes staging everything in Dir and pushing it to Branch.
type CommitInput struct {
	Dir     string
	Remote  Remote
	Branch  string
	Message string
	Author  Identity
}

// CloneAndPushInput is a clone, a set of changes and a push in one temporary working copy.
type CloneAndPushInput struct {
	Remote  Remote
	Branch  string
	Message string
	Author  Identity
	Changes []FileChange
}

// TagInput creates an annotated tag on the head of Branch and pushes it.
type TagInput struct {
	Remote  Remote
	Branch  string
	Name    string
	Message string
	Author  Identity
}
