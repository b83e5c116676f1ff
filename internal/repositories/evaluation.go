package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// EvaluationRepository persists evaluation jobs stage by stage. Exactly one
// stage of a job writes at a time, so every update is a whole-field upsert
// keyed by the row ID.
type EvaluationRepository interface {
	Create(eval *models.Evaluation) error
	FindByID(id uuid.UUID) (*models.Evaluation, error)
	FindByJobID(jobID uuid.UUID) (*models.Evaluation, error)
	FindRecent(limit int) ([]models.Evaluation, error)
	FindPendingJobs(limit int) ([]models.Evaluation, error)
	MarkProcessing(id uuid.UUID) error
	SaveCVResult(id uuid.UUID, matchRate float64, feedback string) error
	SaveProjectResult(id uuid.UUID, score float64, feedback string) error
	Complete(id uuid.UUID, overallSummary string) error
	RecordFailure(id uuid.UUID, errorMessage string, terminal bool) error
	ForceFail(id uuid.UUID) error
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(eval *models.Evaluation) error {
	if err := r.db.Create(eval).Error; err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *evaluationRepository) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	var eval models.Evaluation
	if err := r.db.Where("id = ?", id).First(&eval).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("evaluation not found")
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}

func (r *evaluationRepository) FindByJobID(jobID uuid.UUID) (*models.Evaluation, error) {
	var eval models.Evaluation
	if err := r.db.Where("job_id = ?", jobID).First(&eval).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("evaluation not found")
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}

func (r *evaluationRepository) FindRecent(limit int) ([]models.Evaluation, error) {
	var evals []models.Evaluation
	err := r.db.
		Order("created_at DESC").
		Limit(limit).
		Find(&evals).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	return evals, nil
}

func (r *evaluationRepository) FindPendingJobs(limit int) ([]models.Evaluation, error) {
	var evals []models.Evaluation
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&evals).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return evals, nil
}

// MarkProcessing moves the job into processing. StartedAt is stamped only on
// first stage entry, re-entries keep the original start time.
func (r *evaluationRepository) MarkProcessing(id uuid.UUID) error {
	now := time.Now()
	return r.update(id, map[string]interface{}{
		"status":     models.StatusProcessing,
		"started_at": gorm.Expr("COALESCE(started_at, ?)", now),
		"updated_at": now,
	})
}

func (r *evaluationRepository) SaveCVResult(id uuid.UUID, matchRate float64, feedback string) error {
	return r.update(id, map[string]interface{}{
		"cv_match_rate": matchRate,
		"cv_feedback":   feedback,
		"updated_at":    time.Now(),
	})
}

func (r *evaluationRepository) SaveProjectResult(id uuid.UUID, score float64, feedback string) error {
	return r.update(id, map[string]interface{}{
		"project_score":    score,
		"project_feedback": feedback,
		"updated_at":       time.Now(),
	})
}

func (r *evaluationRepository) Complete(id uuid.UUID, overallSummary string) error {
	now := time.Now()
	return r.update(id, map[string]interface{}{
		"status":          models.StatusCompleted,
		"overall_summary": overallSummary,
		"completed_at":    now,
		"updated_at":      now,
	})
}

// RecordFailure stores a stage failure and bumps the handler retry counter.
// The completion timestamp is stamped only for terminal failures (the final
// stage, or rescue after redelivery exhaustion); intermediate failures stay
// open for redelivery.
func (r *evaluationRepository) RecordFailure(id uuid.UUID, errorMessage string, terminal bool) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMessage,
		"retry_count":   gorm.Expr("retry_count + 1"),
		"updated_at":    now,
	}
	if terminal {
		updates["completed_at"] = now
	}

	return r.update(id, updates)
}

// ForceFail is the exhausted-retries hook: it guarantees no job is left in
// processing once the dispatcher gives up, even if the stage body never ran
// again.
func (r *evaluationRepository) ForceFail(id uuid.UUID) error {
	now := time.Now()
	return r.update(id, map[string]interface{}{
		"status":       models.StatusFailed,
		"completed_at": now,
		"updated_at":   now,
	})
}

func (r *evaluationRepository) update(id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.Model(&models.Evaluation{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update evaluation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("evaluation not found")
	}

	return nil
}
