package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
)

// StageHandler runs one pipeline stage to completion. HandleStage records
// any failure on the job before re-raising it, so the dispatcher can apply
// its redelivery policy; Rescue is the exhausted-retries hook that makes
// sure no job is left in processing forever.
type StageHandler interface {
	HandleStage(ctx context.Context, stage Stage, evaluationID uuid.UUID) error
	Rescue(evaluationID uuid.UUID, stage Stage)
}

// PipelineService implements the three-stage evaluation state machine. Each
// stage reads the shared job record, makes its model calls, persists its
// output and leaves dispatching the successor to the caller.
type PipelineService interface {
	StageHandler
}

type pipelineService struct {
	evalRepo repositories.EvaluationRepository
	docRepo  repositories.DocumentRepository
	gemini   GeminiService
	vector   VectorService
	prompts  *PromptBuilder
}

func NewPipelineService(
	evalRepo repositories.EvaluationRepository,
	docRepo repositories.DocumentRepository,
	gemini GeminiService,
	vector VectorService,
) PipelineService {
	return &pipelineService{
		evalRepo: evalRepo,
		docRepo:  docRepo,
		gemini:   gemini,
		vector:   vector,
		prompts:  NewPromptBuilder(),
	}
}

// HandleStage implements StageHandler. Any stage error is recorded on the
// job (error message, retry counter, failed status) and returned so the
// dispatch layer decides on redelivery; the pipeline never swallows one.
func (p *pipelineService) HandleStage(ctx context.Context, stage Stage, evaluationID uuid.UUID) error {
	var err error

	switch stage {
	case StageCVEvaluation:
		err = p.evaluateCV(ctx, evaluationID)
	case StageProjectEvaluation:
		err = p.evaluateProject(ctx, evaluationID)
	case StageFinalAnalysis:
		err = p.finalAnalysis(ctx, evaluationID)
	default:
		err = fmt.Errorf("unknown stage: %s", stage)
	}

	if err != nil {
		log.Printf("❌ [%s] Stage failed for job %s: %v", stage, evaluationID, err)

		terminal := stage == StageFinalAnalysis
		if recordErr := p.evalRepo.RecordFailure(evaluationID, err.Error(), terminal); recordErr != nil {
			log.Printf("⚠️ [%s] Failed to record failure for job %s: %v", stage, evaluationID, recordErr)
		}

		return err
	}

	return nil
}

// Rescue implements StageHandler. Invoked by the dispatcher once redelivery
// is exhausted; forces the job into failed and stamps completion even if the
// stage body never ran again.
func (p *pipelineService) Rescue(evaluationID uuid.UUID, stage Stage) {
	log.Printf("🛟 [%s] Redelivery exhausted for job %s, forcing failed state", stage, evaluationID)

	if err := p.evalRepo.ForceFail(evaluationID); err != nil {
		log.Printf("⚠️ [%s] Failed to force-fail job %s: %v", stage, evaluationID, err)
	}
}

func (p *pipelineService) evaluateCV(ctx context.Context, evaluationID uuid.UUID) error {
	log.Printf("🔄 [%s] Starting CV evaluation for job %s", StageCVEvaluation, evaluationID)

	evaluation, err := p.evalRepo.FindByID(evaluationID)
	if err != nil {
		return fmt.Errorf("failed to load evaluation: %w", err)
	}

	if err := p.evalRepo.MarkProcessing(evaluationID); err != nil {
		return fmt.Errorf("failed to mark processing: %w", err)
	}

	cvDoc, err := p.docRepo.FindByID(evaluation.CVDocumentID)
	if err != nil {
		return fmt.Errorf("failed to load CV document: %w", err)
	}

	if strings.TrimSpace(cvDoc.ExtractedText) == "" {
		return fmt.Errorf("CV document %s: %w", cvDoc.ID, ErrMissingExtractedText)
	}

	log.Printf("🤖 [%s] Parsing CV...", StageCVEvaluation)
	parsed, err := p.parseCV(ctx, cvDoc.ExtractedText)
	if err != nil {
		return err
	}

	log.Printf("🔍 [%s] Retrieving job description context...", StageCVEvaluation)
	jobDescContext, err := p.vector.RetrieveRelevant(ctx,
		p.prompts.BuildCVRetrievalQuery(evaluation.JobTitle, parsed),
		models.CategoryJobDescription, 3)
	if err != nil {
		return fmt.Errorf("failed to retrieve job description context: %w", err)
	}

	log.Printf("🔍 [%s] Retrieving CV rubric...", StageCVEvaluation)
	cvRubric, err := p.vector.RetrieveRelevant(ctx, CVRubricQuery, models.CategoryCVRubric, 5)
	if err != nil {
		return fmt.Errorf("failed to retrieve CV rubric: %w", err)
	}

	prompt := p.prompts.BuildCVEvaluationPrompt(evaluation.JobTitle, jobDescContext, cvRubric, parsed, cvDoc.ExtractedText)

	log.Printf("🤖 [%s] Generating evaluation...", StageCVEvaluation)
	response, err := p.gemini.GenerateText(ctx, prompt, GenerateOptions{
		Temperature: 0.5,
		JSONMode:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to generate CV evaluation: %w", err)
	}

	var result struct {
		MatchRate float64 `json:"match_rate"`
		Feedback  string  `json:"feedback"`
	}
	if err := DecodeJSON(response, "CV Evaluation", &result); err != nil {
		return err
	}

	if err := p.evalRepo.SaveCVResult(evaluationID, result.MatchRate, result.Feedback); err != nil {
		return fmt.Errorf("failed to save CV result: %w", err)
	}

	log.Printf("✅ [%s] CV evaluation complete for job %s, match rate %.2f", StageCVEvaluation, evaluationID, result.MatchRate)
	return nil
}

func (p *pipelineService) evaluateProject(ctx context.Context, evaluationID uuid.UUID) error {
	log.Printf("🔄 [%s] Starting project evaluation for job %s", StageProjectEvaluation, evaluationID)

	evaluation, err := p.evalRepo.FindByID(evaluationID)
	if err != nil {
		return fmt.Errorf("failed to load evaluation: %w", err)
	}

	if err := p.evalRepo.MarkProcessing(evaluationID); err != nil {
		return fmt.Errorf("failed to mark processing: %w", err)
	}

	projectDoc, err := p.docRepo.FindByID(evaluation.ProjectDocumentID)
	if err != nil {
		return fmt.Errorf("failed to load project document: %w", err)
	}

	if strings.TrimSpace(projectDoc.ExtractedText) == "" {
		return fmt.Errorf("project document %s: %w", projectDoc.ID, ErrMissingExtractedText)
	}

	log.Printf("🔍 [%s] Retrieving case study context...", StageProjectEvaluation)
	caseStudyContext, err := p.vector.RetrieveRelevant(ctx,
		truncate(projectDoc.ExtractedText, 1000),
		models.CategoryCaseStudy, 5)
	if err != nil {
		return fmt.Errorf("failed to retrieve case study context: %w", err)
	}

	log.Printf("🔍 [%s] Retrieving project rubric...", StageProjectEvaluation)
	projectRubric, err := p.vector.RetrieveRelevant(ctx, ProjectRubricQuery, models.CategoryProjectRubric, 5)
	if err != nil {
		return fmt.Errorf("failed to retrieve project rubric: %w", err)
	}

	prompt := p.prompts.BuildProjectEvaluationPrompt(caseStudyContext, projectRubric, projectDoc.ExtractedText)

	log.Printf("🤖 [%s] Generating evaluation...", StageProjectEvaluation)
	response, err := p.gemini.GenerateText(ctx, prompt, GenerateOptions{
		Temperature: 0.5,
		JSONMode:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to generate project evaluation: %w", err)
	}

	var result struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := DecodeJSON(response, "Project Evaluation", &result); err != nil {
		return err
	}

	if err := p.evalRepo.SaveProjectResult(evaluationID, result.Score, result.Feedback); err != nil {
		return fmt.Errorf("failed to save project result: %w", err)
	}

	log.Printf("✅ [%s] Project evaluation complete for job %s, score %.2f", StageProjectEvaluation, evaluationID, result.Score)
	return nil
}

func (p *pipelineService) finalAnalysis(ctx context.Context, evaluationID uuid.UUID) error {
	log.Printf("🔄 [%s] Starting final analysis for job %s", StageFinalAnalysis, evaluationID)

	evaluation, err := p.evalRepo.FindByID(evaluationID)
	if err != nil {
		return fmt.Errorf("failed to load evaluation: %w", err)
	}

	if err := p.evalRepo.MarkProcessing(evaluationID); err != nil {
		return fmt.Errorf("failed to mark processing: %w", err)
	}

	// Defensive re-check against out-of-order execution.
	if evaluation.CVMatchRate == nil || evaluation.ProjectScore == nil {
		return fmt.Errorf("cv or project evaluation not completed yet: %w", ErrStageOrdering)
	}

	prompt := p.prompts.BuildFinalAnalysisPrompt(
		evaluation.JobTitle,
		*evaluation.CVMatchRate,
		deref(evaluation.CVFeedback),
		*evaluation.ProjectScore,
		deref(evaluation.ProjectFeedback),
	)

	log.Printf("🤖 [%s] Generating overall summary...", StageFinalAnalysis)
	response, err := p.gemini.GenerateText(ctx, prompt, GenerateOptions{
		Temperature: 0.6,
		JSONMode:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to generate final analysis: %w", err)
	}

	var result struct {
		Summary        string `json:"summary"`
		Recommendation string `json:"recommendation"`
	}
	if err := DecodeJSON(response, "Final Analysis", &result); err != nil {
		return err
	}

	overallSummary := fmt.Sprintf("%s\n\nRecommendation: %s", result.Summary, result.Recommendation)

	if err := p.evalRepo.Complete(evaluationID, overallSummary); err != nil {
		return fmt.Errorf("failed to complete evaluation: %w", err)
	}

	log.Printf("✅ [%s] Pipeline completed for job %s, recommendation: %s", StageFinalAnalysis, evaluationID, result.Recommendation)
	return nil
}

func (p *pipelineService) parseCV(ctx context.Context, cvText string) (*ParsedCV, error) {
	response, err := p.gemini.GenerateText(ctx, p.prompts.BuildCVParsePrompt(cvText), GenerateOptions{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse CV: %w", err)
	}

	var parsed ParsedCV
	if err := DecodeJSON(response, "CV Parsing", &parsed); err != nil {
		return nil, err
	}

	if parsed.Name == "" || parsed.Skills == nil {
		return nil, fmt.Errorf("missing name or skills: %w", ErrInvalidCVStructure)
	}

	return &parsed, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
