package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
	"github.com/akbaraffaruk/cv-analysis/internal/services"
)

type EvaluationHandler struct {
	evalRepo   repositories.EvaluationRepository
	docRepo    repositories.DocumentRepository
	dispatcher services.Dispatcher
}

func NewEvaluationHandler(
	evalRepo repositories.EvaluationRepository,
	docRepo repositories.DocumentRepository,
	dispatcher services.Dispatcher,
) *EvaluationHandler {
	return &EvaluationHandler{
		evalRepo:   evalRepo,
		docRepo:    docRepo,
		dispatcher: dispatcher,
	}
}

// HandleEvaluate handles POST /evaluate. Document existence and declared
// types are validated here, once; stages do not re-check them.
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.JobTitle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_title is required",
		})
	}

	cvDocID, err := uuid.Parse(req.CVDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid cv_document_id format",
		})
	}

	projectDocID, err := uuid.Parse(req.ProjectDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid project_document_id format",
		})
	}

	cvDoc, err := h.docRepo.FindByID(cvDocID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "CV document not found",
		})
	}

	projectDoc, err := h.docRepo.FindByID(projectDocID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project document not found",
		})
	}

	if cvDoc.Type != models.DocumentTypeCV || projectDoc.Type != models.DocumentTypeProjectReport {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid document types",
			"message": "cv_document_id must be a CV and project_document_id must be a project report",
		})
	}

	evaluation := &models.Evaluation{
		ID:                uuid.New(),
		JobID:             uuid.New(),
		JobTitle:          req.JobTitle,
		CVDocumentID:      cvDocID,
		ProjectDocumentID: projectDocID,
		Status:            models.StatusQueued,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := h.evalRepo.Create(evaluation); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.dispatcher.Dispatch(services.StageCVEvaluation, evaluation.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     evaluation.JobID.String(),
		Status: string(models.StatusQueued),
	})
}

// HandleList handles GET /evaluations.
func (h *EvaluationHandler) HandleList(c *fiber.Ctx) error {
	evaluations, err := h.evalRepo.FindRecent(50)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch evaluations",
		})
	}

	items := make([]models.EvaluationListItem, 0, len(evaluations))
	for _, eval := range evaluations {
		item := models.EvaluationListItem{
			ID:        eval.JobID.String(),
			Status:    string(eval.Status),
			JobTitle:  eval.JobTitle,
			CreatedAt: eval.CreatedAt.Format(time.RFC3339),
		}
		if eval.CompletedAt != nil {
			completed := eval.CompletedAt.Format(time.RFC3339)
			item.CompletedAt = &completed
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"data": items})
}
