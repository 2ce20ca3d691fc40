//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// IdentityBuilder helps create acting users with a fluent interface.
type IdentityBuilder struct {
	*testkit.BaseBuilder
	identity entities.Identity
}

// NewIdentityBuilder creates an editor of project-1.
func NewIdentityBuilder() *IdentityBuilder {
	return &IdentityBuilder{BaseBuilder: testkit.NewBaseBuilder(), identity: defaultIdentity()}
}

func defaultIdentity() entities.Identity {
	return entities.Identity{
		UserID:      "u-1",
		Username:    "jdoe",
		Email:       "jane@example.com",
		DisplayName: "Jane Doe",
		ProjectID:   "project-1",
		AccessLevel: entities.AccessLevelEditor,
	}
}

// WithUsername sets the username.
func (b *IdentityBuilder) WithUsername(username string) *IdentityBuilder {
	b.identity.Username = username
	return b
}

// WithProjectID sets the project.
func (b *IdentityBuilder) WithProjectID(projectID string) *IdentityBuilder {
	b.identity.ProjectID = projectID
	return b
}

// WithAccessLevel sets the project role.
func (b *IdentityBuilder) WithAccessLevel(level entities.AccessLevel) *IdentityBuilder {
	b.identity.AccessLevel = level
	return b
}

// Build creates the identity (satisfies testkit.Builder interface).
func (b *IdentityBuilder) Build() interface{} {
	return b.BuildIdentity()
}

// BuildIdentity creates the identity with a concrete return type.
func (b *IdentityBuilder) BuildIdentity() entities.Identity {
	return b.identity
}

// Reset clears the builder state, allowing it to be reused.
func (b *IdentityBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.identity = defaultIdentity()
	return b
}

// Clone creates a copy of the IdentityBuilder.
func (b *IdentityBuilder) Clone() testkit.Builder {
	return &IdentityBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		identity:    b.identity,
	}
}
