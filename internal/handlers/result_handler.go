package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
)

type ResultHandler struct {
	evalRepo repositories.EvaluationRepository
}

func NewResultHandler(evalRepo repositories.EvaluationRepository) *ResultHandler {
	return &ResultHandler{
		evalRepo: evalRepo,
	}
}

// HandleGetResult handles GET /result/:id. Polling clients see just the
// status while a job is in flight, the stored error once it failed, or the
// full result set once completed, never a partial one.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation ID format",
		})
	}

	evaluation, err := h.evalRepo.FindByJobID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Evaluation not found",
		})
	}

	response := models.ResultResponse{
		ID:     evaluation.JobID.String(),
		Status: string(evaluation.Status),
	}

	if evaluation.Status == models.StatusCompleted {
		response.Result = &models.EvaluationData{
			CVMatchRate:     derefFloat(evaluation.CVMatchRate),
			CVFeedback:      derefString(evaluation.CVFeedback),
			ProjectScore:    derefFloat(evaluation.ProjectScore),
			ProjectFeedback: derefString(evaluation.ProjectFeedback),
		}
		response.OverallSummary = evaluation.OverallSummary
	}

	if evaluation.Status == models.StatusFailed {
		response.ErrorMessage = evaluation.ErrorMessage
	}

	return c.JSON(response)
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
