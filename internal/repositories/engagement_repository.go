package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anonto42/threadline/backend/internal/models"
)

// ToggleOutcome is what happened to the (actor, target, kind) row
type ToggleOutcome struct {
	Added bool
	// Conflict is set when the insert lost a race against a concurrent
	// toggle that created the same row first.
	Conflict bool
	Count    int64
}

// EngagementRepository defines the interface for engagement data operations
type EngagementRepository interface {
	// Toggle removes the row if present, otherwise calls beforeCreate and
	// inserts it, then recounts the target. It runs in one transaction.
	Toggle(ctx context.Context, actorID, targetID string, kind models.Kind, beforeCreate func(ctx context.Context) error) (ToggleOutcome, error)
	Exists(ctx context.Context, actorID, targetID string, kind models.Kind) (bool, error)
	Count(ctx context.Context, targetID string, kind models.Kind) (int64, error)
	CountMany(ctx context.Context, targetIDs []string, kind models.Kind) (map[string]int64, error)
	CountByActor(ctx context.Context, actorID string, kind models.Kind) (int64, error)
	CountManyByActor(ctx context.Context, actorIDs []string, kind models.Kind) (map[string]int64, error)
	ListTargetIDs(ctx context.Context, actorID string, kind models.Kind) ([]string, error)
	EngagedAmong(ctx context.Context, actorID string, targetIDs []string, kind models.Kind) (map[string]bool, error)
	DeleteByTarget(ctx context.Context, targetID string, kinds ...models.Kind) (int64, error)
}

// serializationFailure is the SQLSTATE Postgres raises when a serializable
// transaction has to be rolled back
const serializationFailure = "40001"

const maxToggleAttempts = 3

// PostgresEngagementRepository implements EngagementRepository with GORM
type PostgresEngagementRepository struct {
	db     *gorm.DB
	txOpts *sql.TxOptions
}

// EngagementRepositoryOption configures a PostgresEngagementRepository
type EngagementRepositoryOption func(*PostgresEngagementRepository)

// WithIsolation runs toggles at the given isolation level
func WithIsolation(level sql.IsolationLevel) EngagementRepositoryOption {
	return func(r *PostgresEngagementRepository) {
		r.txOpts = &sql.TxOptions{Isolation: level}
	}
}

// NewPostgresEngagementRepository creates a new PostgresEngagementRepository
func NewPostgresEngagementRepository(db *gorm.DB, opts ...EngagementRepositoryOption) *PostgresEngagementRepository {
	r := &PostgresEngagementRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// toggleIntent is what the first attempt of a toggle decided to do. A retry
// after a serialization failure carries it forward instead of re-reading the
// row, so a concurrent identical toggle that committed in between is seen as
// a conflict rather than flipped back.
type toggleIntent int

const (
	intentUndecided toggleIntent = iota
	intentRemove
	intentCreate
)

func (r *PostgresEngagementRepository) Toggle(ctx context.Context, actorID, targetID string, kind models.Kind, beforeCreate func(ctx context.Context) error) (ToggleOutcome, error) {
	var (
		out    ToggleOutcome
		intent = intentUndecided
	)
	fn := func(tx *gorm.DB) error {
		switch intent {
		case intentUndecided:
			removed, err := deleteEngagement(tx, actorID, targetID, kind)
			if err != nil {
				return err
			}
			if removed > 0 {
				intent = intentRemove
				break
			}
			if beforeCreate != nil {
				if err := beforeCreate(ctx); err != nil {
					return err
				}
			}
			intent = intentCreate
			if out, err = insertEngagement(tx, actorID, targetID, kind); err != nil {
				return err
			}
		case intentRemove:
			// zero rows means a concurrent removal got there first
			if _, err := deleteEngagement(tx, actorID, targetID, kind); err != nil {
				return err
			}
		case intentCreate:
			var err error
			if out, err = insertEngagement(tx, actorID, targetID, kind); err != nil {
				return err
			}
		}

		return tx.Model(&models.Engagement{}).
			Where("target_id = ? AND kind = ?", targetID, kind).
			Count(&out.Count).Error
	}

	var err error
	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		out = ToggleOutcome{}
		if r.txOpts != nil {
			err = r.db.WithContext(ctx).Transaction(fn, r.txOpts)
		} else {
			err = r.db.WithContext(ctx).Transaction(fn)
		}
		if !isSerializationFailure(err) {
			break
		}
	}
	if err != nil {
		return ToggleOutcome{}, err
	}
	return out, nil
}

func deleteEngagement(tx *gorm.DB, actorID, targetID string, kind models.Kind) (int64, error) {
	res := tx.Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, kind).
		Delete(&models.Engagement{})
	return res.RowsAffected, res.Error
}

// insertEngagement reports Conflict when the row already exists
func insertEngagement(tx *gorm.DB, actorID, targetID string, kind models.Kind) (ToggleOutcome, error) {
	rec := &models.Engagement{
		ID:       uuid.NewString(),
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	}
	ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if ins.Error != nil {
		return ToggleOutcome{}, ins.Error
	}
	return ToggleOutcome{Added: true, Conflict: ins.RowsAffected == 0}, nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

func (r *PostgresEngagementRepository) Exists(ctx context.Context, actorID, targetID string, kind models.Kind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, kind).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresEngagementRepository) Count(ctx context.Context, targetID string, kind models.Kind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("target_id = ? AND kind = ?", targetID, kind).
		Count(&count).Error
	return count, err
}

// CountMany recounts several targets in one grouped query; targets without
// rows are present with zero.
func (r *PostgresEngagementRepository) CountMany(ctx context.Context, targetIDs []string, kind models.Kind) (map[string]int64, error) {
	result := make(map[string]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}
	for _, id := range targetIDs {
		result[id] = 0
	}

	var rows []struct {
		TargetID string
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Select("target_id, COUNT(*) AS total").
		Where("target_id IN ? AND kind = ?", targetIDs, kind).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.TargetID] = row.Total
	}
	return result, nil
}

func (r *PostgresEngagementRepository) CountByActor(ctx context.Context, actorID string, kind models.Kind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("actor_id = ? AND kind = ?", actorID, kind).
		Count(&count).Error
	return count, err
}

// CountManyByActor is CountByActor for several actors in one grouped query
func (r *PostgresEngagementRepository) CountManyByActor(ctx context.Context, actorIDs []string, kind models.Kind) (map[string]int64, error) {
	result := make(map[string]int64, len(actorIDs))
	if len(actorIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ActorID string
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Select("actor_id, COUNT(*) AS total").
		Where("actor_id IN ? AND kind = ?", actorIDs, kind).
		Group("actor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ActorID] = row.Total
	}
	return result, nil
}

// ListTargetIDs returns the actor's targets of a kind, newest first
func (r *PostgresEngagementRepository) ListTargetIDs(ctx context.Context, actorID string, kind models.Kind) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("actor_id = ? AND kind = ?", actorID, kind).
		Order("created_at DESC").
		Pluck("target_id", &ids).Error
	return ids, err
}

func (r *PostgresEngagementRepository) EngagedAmong(ctx context.Context, actorID string, targetIDs []string, kind models.Kind) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(targetIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("actor_id = ? AND kind = ? AND target_id IN ?", actorID, kind, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// DeleteByTarget drops the engagements of the given kinds pointing at a removed target
func (r *PostgresEngagementRepository) DeleteByTarget(ctx context.Context, targetID string, kinds ...models.Kind) (int64, error) {
	q := r.db.WithContext(ctx).Where("target_id = ?", targetID)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	res := q.Delete(&models.Engagement{})
	return res.RowsAffected, res.Error
}
