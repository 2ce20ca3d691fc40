package azuredevops

// SplitRepoURL exports splitRepoURL for testing.
var SplitRepoURL = splitRepoURL //nolint:gochecknoglobals // test export
