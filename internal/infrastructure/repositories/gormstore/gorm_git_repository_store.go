// Package gormstore persists repositories, cached branches and active-repo
// selections with gorm. The driver is chosen from the database settings.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// Open connects to the configured database.
func Open(settings *entities.Settings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch settings.Database.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(settings.Database.DSN)
	case "postgres":
		dialector = postgres.Open(settings.Database.DSN)
	case "mysql":
		dialector = mysql.Open(settings.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", settings.Database.Driver)
	}

	level := gormLogger.Warn
	if logger.IsLevelEnabled(logger.DebugLevel) {
		level = gormLogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", settings.Database.Driver, err)
	}
	logger.Debugf("Connected to %s database", settings.Database.Driver)
	return db, nil
}

// GormGitRepositoryStore implements repositories.GitRepositoryStore.
type GormGitRepositoryStore struct {
	db *gorm.DB
}

// NewGormGitRepositoryStore creates a store over an open connection.
func NewGormGitRepositoryStore(db *gorm.DB) *GormGitRepositoryStore {
	return &GormGitRepositoryStore{db: db}
}

// AutoMigrate creates or updates the tables. Production schemas are owned
// externally; this serves tests and local sqlite databases.
func (it *GormGitRepositoryStore) AutoMigrate() error {
	return it.db.AutoMigrate(&gitRepositoryRecord{}, &branchRecord{}, &activeRepoRecord{})
}

func (it *GormGitRepositoryStore) GetGitRepo(ctx context.Context, repoID string) (*entities.Repository, error) {
	var record gitRepositoryRecord
	err := it.db.WithContext(ctx).Where("repo_id = ?", repoID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrRepoNotFound, repoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load repository %q: %w", repoID, err)
	}
	repo := record.toEntity()
	return &repo, nil
}

func (it *GormGitRepositoryStore) ListGitRepos(
	ctx context.Context,
	projectID string,
	status entities.RepoStatus,
) ([]entities.Repository, error) {
	query := it.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("repo_status = ?", string(status))
	}

	var records []gitRepositoryRecord
	if err := query.Order("repo_name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list repositories of project %q: %w", projectID, err)
	}

	repos := make([]entities.Repository, 0, len(records))
	for _, record := range records {
		repos = append(repos, record.toEntity())
	}
	return repos, nil
}

func (it *GormGitRepositoryStore) AddGitRepo(ctx context.Context, repo *entities.Repository) error {
	if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	record := toRepositoryRecord(repo)
	if err := it.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to add repository %q: %w", repo.Name, err)
	}
	return nil
}

func (it *GormGitRepositoryStore) UpdateGitRepo(ctx context.Context, repo *entities.Repository) error {
	record := toRepositoryRecord(repo)
	err := it.db.WithContext(ctx).Model(&gitRepositoryRecord{}).Where("repo_id = ?", repo.ID).Select("*").Updates(&record).Error
	if err != nil {
		return fmt.Errorf("failed to update repository %q: %w", repo.ID, err)
	}
	return nil
}

// DeleteGitRepo removes a repository together with its cached branches.
func (it *GormGitRepositoryStore) DeleteGitRepo(ctx context.Context, repoID string) error {
	return it.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("repo_id = ?", repoID).Delete(&branchRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete branches of repository %q: %w", repoID, err)
		}
		if err := tx.Where("repo_id = ?", repoID).Delete(&gitRepositoryRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete repository %q: %w", repoID, err)
		}
		return nil
	})
}

func (it *GormGitRepositoryStore) ListBranches(ctx context.Context, repoID string) ([]entities.Branch, error) {
	var records []branchRecord
	if err := it.db.WithContext(ctx).Where("repo_id = ?", repoID).Order("branch_name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list branches of repository %q: %w", repoID, err)
	}

	branches := make([]entities.Branch, 0, len(records))
	for _, record := range records {
		branches = append(branches, record.toEntity())
	}
	return branches, nil
}

func (it *GormGitRepositoryStore) AddBranch(ctx context.Context, branch *entities.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	record := branchRecord{
		ID:        branch.ID,
		RepoID:    branch.RepoID,
		Name:      branch.Name,
		IsDefault: branch.Default,
		Freeze:    branch.Freeze,
		Share:     branch.Share,
	}
	if err := it.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to add branch %q: %w", branch.Name, err)
	}
	return nil
}

// SetDefaultBranch also mirrors the branch name into the repository row.
func (it *GormGitRepositoryStore) SetDefaultBranch(ctx context.Context, repoID, branchID string) error {
	return it.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target branchRecord
		err := tx.Where("branch_id = ? AND repo_id = ?", branchID, repoID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", entities.ErrBranchNotFound, branchID)
		}
		if err != nil {
			return fmt.Errorf("failed to load branch %q: %w", branchID, err)
		}

		if err = tx.Model(&branchRecord{}).
			Where("repo_id = ? AND branch_id <> ?", repoID, branchID).
			Update("default_flag", false).Error; err != nil {
			return fmt.Errorf("failed to clear default branches: %w", err)
		}
		if err = tx.Model(&branchRecord{}).
			Where("branch_id = ?", branchID).
			Update("default_flag", true).Error; err != nil {
			return fmt.Errorf("failed to flag default branch: %w", err)
		}
		if err = tx.Model(&gitRepositoryRecord{}).
			Where("repo_id = ?", repoID).
			Update("branch", target.Name).Error; err != nil {
			return fmt.Errorf("failed to update repository default branch: %w", err)
		}
		return nil
	})
}

func (it *GormGitRepositoryStore) GetActiveRepo(
	ctx context.Context,
	projectID, username string,
) (*entities.ActiveRepo, error) {
	var record activeRepoRecord
	err := it.db.WithContext(ctx).
		Where("project_id = ? AND username = ?", projectID, username).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrNoActiveRepo
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active repository: %w", err)
	}
	return &entities.ActiveRepo{
		ID:        record.ID,
		ProjectID: record.ProjectID,
		Username:  record.Username,
		RepoID:    record.RepoID,
		BranchID:  record.BranchID,
	}, nil
}

// UpsertActiveRepo relies on the (project_id, username) unique index so that
// concurrent activations never produce two rows.
func (it *GormGitRepositoryStore) UpsertActiveRepo(ctx context.Context, record *entities.ActiveRepo) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	row := activeRepoRecord{
		ID:        record.ID,
		ProjectID: record.ProjectID,
		Username:  record.Username,
		RepoID:    record.RepoID,
		BranchID:  record.BranchID,
	}
	err := it.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"repo_id", "branch_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to activate repository %q: %w", record.RepoID, err)
	}

	// an update keeps the id of the existing row
	var persisted activeRepoRecord
	if err = it.db.WithContext(ctx).
		Where("project_id = ? AND username = ?", record.ProjectID, record.Username).
		First(&persisted).Error; err != nil {
		return fmt.Errorf("failed to reload active repository: %w", err)
	}
	record.ID = persisted.ID
	return nil
}

func (it *GormGitRepositoryStore) DeleteActiveRepo(ctx context.Context, projectID, username string) error {
	err := it.db.WithContext(ctx).
		Where("project_id = ? AND username = ?", projectID, username).
		Delete(&activeRepoRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate repository: %w", err)
	}
	return nil
}
