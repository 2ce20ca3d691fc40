package gormstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

const (
	branchTable = "git_repository_branches"
	activeTable = "git_repository_active"
)

// gitRepositoryRecord is a row of git_repository. Username and Password only
// ever hold plain values for public repositories or "vault:" references.
type gitRepositoryRecord struct {
	ID             string      `gorm:"primaryKey;column:repo_id;size:36"`
	ProjectID      string      `gorm:"column:project_id;index;size:64"`
	URL            string      `gorm:"column:repo_url"`
	Username       string      `gorm:"column:username"`
	Password       string      `gorm:"column:password"`
	Name           string      `gorm:"column:repo_name"`
	Type           string      `gorm:"column:repo_type;size:32"`
	AccessCategory string      `gorm:"column:access_category;size:16"`
	BaseFolder     string      `gorm:"column:base_folder"`
	DefaultBranch  string      `gorm:"column:branch"`
	Status         string      `gorm:"column:repo_status;size:16"`
	Proxy          proxyColumn `gorm:"column:proxy_details;type:text"`
}

func (gitRepositoryRecord) TableName() string {
	return entities.RepositoryTable
}

// branchRecord is a row of git_repository_branches; branch names are unique per repository.
type branchRecord struct {
	ID        string `gorm:"primaryKey;column:branch_id;size:36"`
	RepoID    string `gorm:"column:repo_id;uniqueIndex:idx_branch_repo_name;size:36"`
	Name      string `gorm:"column:branch_name;uniqueIndex:idx_branch_repo_name;size:255"`
	IsDefault bool   `gorm:"column:default_flag"`
	Freeze    bool   `gorm:"column:freeze_flag"`
	Share     bool   `gorm:"column:share_flag"`
}

func (branchRecord) TableName() string {
	return branchTable
}

// activeRepoRecord holds at most one row per (project_id, username).
type activeRepoRecord struct {
	ID        string `gorm:"primaryKey;column:id;size:36"`
	ProjectID string `gorm:"column:project_id;uniqueIndex:idx_active_project_user;size:64"`
	Username  string `gorm:"column:username;uniqueIndex:idx_active_project_user;size:128"`
	RepoID    string `gorm:"column:repo_id;size:36"`
	BranchID  string `gorm:"column:branch_id;size:36"`
}

func (activeRepoRecord) TableName() string {
	return activeTable
}

// proxyColumn stores the optional proxy details as JSON text.
type proxyColumn struct {
	Details *entities.ProxyDetails
}

// Scan implements the sql.Scanner interface for proxyColumn.
func (p *proxyColumn) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		p.Details = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported type for proxy_details: %T", value)
	}
	if len(data) == 0 || string(data) == "null" {
		p.Details = nil
		return nil
	}
	var details entities.ProxyDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return fmt.Errorf("failed to parse proxy_details: %w", err)
	}
	p.Details = &details
	return nil
}

// Value implements the driver.Valuer interface for proxyColumn.
func (p proxyColumn) Value() (driver.Value, error) {
	if p.Details == nil {
		return nil, nil
	}
	data, err := json.Marshal(p.Details)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func toRepositoryRecord(repo *entities.Repository) gitRepositoryRecord {
	return gitRepositoryRecord{
		ID:             repo.ID,
		ProjectID:      repo.ProjectID,
		URL:            repo.URL,
		Username:       repo.Username,
		Password:       repo.Password,
		Name:           repo.Name,
		Type:           string(repo.Type),
		AccessCategory: string(repo.AccessCategory),
		BaseFolder:     repo.BaseFolder,
		DefaultBranch:  repo.DefaultBranch,
		Status:         string(repo.Status),
		Proxy:          proxyColumn{Details: repo.Proxy},
	}
}

func (r gitRepositoryRecord) toEntity() entities.Repository {
	return entities.Repository{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		URL:            r.URL,
		Username:       r.Username,
		Password:       r.Password,
		Name:           r.Name,
		Type:           entities.RepoType(r.Type),
		AccessCategory: entities.AccessCategory(r.AccessCategory),
		BaseFolder:     r.BaseFolder,
		DefaultBranch:  r.DefaultBranch,
		Status:         entities.RepoStatus(r.Status),
		Proxy:          r.Proxy.Details,
	}
}

func (r branchRecord) toEntity() entities.Branch {
	return entities.Branch{
		ID:      r.ID,
		RepoID:  r.RepoID,
		Name:    r.Name,
		Default: r.IsDefault,
		Freeze:  r.Freeze,
		Share:   r.Share,
	}
}
