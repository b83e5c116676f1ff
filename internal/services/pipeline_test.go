package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

// fakeEvalRepo is an in-memory EvaluationRepository over a single job.
type fakeEvalRepo struct {
	eval *models.Evaluation
}

func (f *fakeEvalRepo) Create(eval *models.Evaluation) error {
	f.eval = eval
	return nil
}

func (f *fakeEvalRepo) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	if f.eval == nil || f.eval.ID != id {
		return nil, errors.New("evaluation not found")
	}
	copied := *f.eval
	return &copied, nil
}

func (f *fakeEvalRepo) FindByJobID(jobID uuid.UUID) (*models.Evaluation, error) {
	if f.eval == nil || f.eval.JobID != jobID {
		return nil, errors.New("evaluation not found")
	}
	copied := *f.eval
	return &copied, nil
}

func (f *fakeEvalRepo) FindRecent(limit int) ([]models.Evaluation, error) {
	if f.eval == nil {
		return nil, nil
	}
	return []models.Evaluation{*f.eval}, nil
}

func (f *fakeEvalRepo) FindPendingJobs(limit int) ([]models.Evaluation, error) {
	if f.eval != nil && f.eval.Status == models.StatusQueued {
		return []models.Evaluation{*f.eval}, nil
	}
	return nil, nil
}

func (f *fakeEvalRepo) MarkProcessing(id uuid.UUID) error {
	f.eval.Status = models.StatusProcessing
	if f.eval.StartedAt == nil {
		now := time.Now()
		f.eval.StartedAt = &now
	}
	return nil
}

func (f *fakeEvalRepo) SaveCVResult(id uuid.UUID, matchRate float64, feedback string) error {
	f.eval.CVMatchRate = &matchRate
	f.eval.CVFeedback = &feedback
	return nil
}

func (f *fakeEvalRepo) SaveProjectResult(id uuid.UUID, score float64, feedback string) error {
	f.eval.ProjectScore = &score
	f.eval.ProjectFeedback = &feedback
	return nil
}

func (f *fakeEvalRepo) Complete(id uuid.UUID, overallSummary string) error {
	now := time.Now()
	f.eval.Status = models.StatusCompleted
	f.eval.OverallSummary = &overallSummary
	f.eval.CompletedAt = &now
	return nil
}

func (f *fakeEvalRepo) RecordFailure(id uuid.UUID, errorMessage string, terminal bool) error {
	f.eval.Status = models.StatusFailed
	f.eval.ErrorMessage = &errorMessage
	f.eval.RetryCount++
	if terminal {
		now := time.Now()
		f.eval.CompletedAt = &now
	}
	return nil
}

func (f *fakeEvalRepo) ForceFail(id uuid.UUID) error {
	now := time.Now()
	f.eval.Status = models.StatusFailed
	f.eval.CompletedAt = &now
	return nil
}

// fakeDocRepo serves documents from a map.
type fakeDocRepo struct {
	docs map[uuid.UUID]*models.Document
}

func (f *fakeDocRepo) Create(document *models.Document) error {
	f.docs[document.ID] = document
	return nil
}

func (f *fakeDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

func (f *fakeDocRepo) Delete(id uuid.UUID) error {
	delete(f.docs, id)
	return nil
}

// queueLLM plays back canned completions in call order.
type queueLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (q *queueLLM) GenerateText(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	idx := q.calls
	q.calls++
	q.prompts = append(q.prompts, prompt)

	if idx < len(q.errs) && q.errs[idx] != nil {
		return "", q.errs[idx]
	}
	if idx >= len(q.responses) {
		return "", fmt.Errorf("unexpected generation call %d", idx+1)
	}
	return q.responses[idx], nil
}

func (q *queueLLM) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// cannedVector serves fixed chunks per category.
type cannedVector struct {
	contexts map[models.ChunkCategory][]string
	queries  []string
}

func (c *cannedVector) IngestDocument(_ context.Context, _ models.ChunkCategory, _, _ string, _ models.JSONMap) error {
	return nil
}

func (c *cannedVector) RetrieveRelevant(_ context.Context, query string, category models.ChunkCategory, topK int) ([]string, error) {
	c.queries = append(c.queries, query)
	return c.contexts[category], nil
}

func (c *cannedVector) DeleteByCategory(_ context.Context, _ models.ChunkCategory) error {
	return nil
}

func (c *cannedVector) GetStats(_ context.Context) (map[models.ChunkCategory]int64, error) {
	return nil, nil
}

func newPipelineFixture(cvText, projectText string) (*fakeEvalRepo, PipelineService, *queueLLM, *cannedVector) {
	cvDoc := &models.Document{
		ID:            uuid.New(),
		Type:          models.DocumentTypeCV,
		ExtractedText: cvText,
	}
	projectDoc := &models.Document{
		ID:            uuid.New(),
		Type:          models.DocumentTypeProjectReport,
		ExtractedText: projectText,
	}

	evalRepo := &fakeEvalRepo{
		eval: &models.Evaluation{
			ID:                uuid.New(),
			JobID:             uuid.New(),
			JobTitle:          "Product Engineer (Backend)",
			CVDocumentID:      cvDoc.ID,
			ProjectDocumentID: projectDoc.ID,
			Status:            models.StatusQueued,
		},
	}
	docRepo := &fakeDocRepo{docs: map[uuid.UUID]*models.Document{
		cvDoc.ID:      cvDoc,
		projectDoc.ID: projectDoc,
	}}

	llm := &queueLLM{}
	vector := &cannedVector{contexts: map[models.ChunkCategory][]string{
		models.CategoryJobDescription: {"Backend role requiring Go and Postgres."},
		models.CategoryCVRubric:       {"Weight technical skills at 40%."},
		models.CategoryCaseStudy:      {"Build an evaluation pipeline."},
		models.CategoryProjectRubric:  {"Weight correctness at 30%."},
	}}

	pipeline := NewPipelineService(evalRepo, docRepo, llm, vector)
	return evalRepo, pipeline, llm, vector
}

func TestPipelineHappyPath(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture(
		"Jane Doe, backend engineer with Go experience.",
		"Project report describing the evaluation service.",
	)
	llm.responses = []string{
		`{"name": "Jane Doe", "skills": ["Go", "Postgres"], "experience": ["5 years backend"], "education": ["BSc CS"], "achievements": ["Led migration"]}`,
		`{"match_rate": 0.82, "feedback": "Strong backend skills."}`,
		`{"score": 4.2, "feedback": "Well structured solution."}`,
		`{"summary": "Strong candidate overall.", "recommendation": "Hire"}`,
	}

	ctx := context.Background()
	id := evalRepo.eval.ID

	for _, stage := range []Stage{StageCVEvaluation, StageProjectEvaluation, StageFinalAnalysis} {
		if err := pipeline.HandleStage(ctx, stage, id); err != nil {
			t.Fatalf("stage %s failed: %v", stage, err)
		}
	}

	eval := evalRepo.eval
	if eval.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", eval.Status)
	}
	if eval.CVMatchRate == nil || *eval.CVMatchRate != 0.82 {
		t.Errorf("cv match rate = %v, want 0.82", eval.CVMatchRate)
	}
	if eval.ProjectScore == nil || *eval.ProjectScore != 4.2 {
		t.Errorf("project score = %v, want 4.2", eval.ProjectScore)
	}
	if eval.OverallSummary == nil {
		t.Fatal("overall summary not persisted")
	}
	if !strings.Contains(*eval.OverallSummary, "Recommendation: Hire") {
		t.Errorf("summary missing recommendation suffix: %q", *eval.OverallSummary)
	}
	if eval.StartedAt == nil || eval.CompletedAt == nil {
		t.Error("expected both started_at and completed_at to be stamped")
	}
	if llm.calls != 4 {
		t.Errorf("expected 4 generation calls across the pipeline, got %d", llm.calls)
	}
}

func TestPipelineCVRetrievalUsesParsedProfile(t *testing.T) {
	evalRepo, pipeline, llm, vector := newPipelineFixture("Jane Doe CV text.", "report")
	llm.responses = []string{
		`{"name": "Jane Doe", "skills": ["Go"], "experience": ["Backend at Acme"], "education": [], "achievements": []}`,
		`{"match_rate": 0.7, "feedback": "ok"}`,
	}

	if err := pipeline.HandleStage(context.Background(), StageCVEvaluation, evalRepo.eval.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vector.queries) != 2 {
		t.Fatalf("expected 2 retrieval queries, got %d", len(vector.queries))
	}
	// First query targets the job description with title and parsed profile.
	if !strings.Contains(vector.queries[0], "Product Engineer (Backend)") || !strings.Contains(vector.queries[0], "Go") {
		t.Errorf("job description query missing profile terms: %q", vector.queries[0])
	}
	if vector.queries[1] != CVRubricQuery {
		t.Errorf("rubric query = %q, want the fixed rubric query", vector.queries[1])
	}
}

func TestPipelineMissingExtractedText(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture("   ", "report")

	err := pipeline.HandleStage(context.Background(), StageCVEvaluation, evalRepo.eval.ID)
	if err == nil {
		t.Fatal("expected error for missing CV text")
	}
	if !errors.Is(err, ErrMissingExtractedText) {
		t.Fatalf("expected ErrMissingExtractedText, got %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("no model call should be made without extracted text, got %d", llm.calls)
	}

	eval := evalRepo.eval
	if eval.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", eval.Status)
	}
	if eval.ErrorMessage == nil || !strings.Contains(*eval.ErrorMessage, "text has not been extracted") {
		t.Errorf("error message = %v", eval.ErrorMessage)
	}
	if eval.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", eval.RetryCount)
	}
	// Non-final stage failure stays open for redelivery.
	if eval.CompletedAt != nil {
		t.Error("completed_at must not be stamped on an intermediate failure")
	}
}

func TestPipelineInvalidCVStructure(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture("cv text", "report")
	llm.responses = []string{
		`{"name": "", "skills": null, "experience": [], "education": [], "achievements": []}`,
	}

	err := pipeline.HandleStage(context.Background(), StageCVEvaluation, evalRepo.eval.ID)
	if !errors.Is(err, ErrInvalidCVStructure) {
		t.Fatalf("expected ErrInvalidCVStructure, got %v", err)
	}
}

func TestPipelineMalformedModelOutput(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture("cv text", "report")
	llm.responses = []string{
		`{"name": "Jane", "skills": ["Go"], "experience": [], "education": [], "achievements": []}`,
		`I think the candidate is great.`,
	}

	err := pipeline.HandleStage(context.Background(), StageCVEvaluation, evalRepo.eval.ID)
	if err == nil {
		t.Fatal("expected error for malformed output")
	}

	var malformed *MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedOutputError, got %T", err)
	}
	if evalRepo.eval.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", evalRepo.eval.Status)
	}
}

func TestPipelineFinalStageRequiresEarlierScores(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture("cv text", "report")

	err := pipeline.HandleStage(context.Background(), StageFinalAnalysis, evalRepo.eval.ID)
	if !errors.Is(err, ErrStageOrdering) {
		t.Fatalf("expected ErrStageOrdering, got %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("no model call should be made out of order, got %d", llm.calls)
	}
	// Final stage failures are terminal.
	if evalRepo.eval.CompletedAt == nil {
		t.Error("completed_at must be stamped on a final-stage failure")
	}
}

func TestPipelineStartedAtStampedOnce(t *testing.T) {
	evalRepo, pipeline, llm, _ := newPipelineFixture("cv text", "report text")
	llm.responses = []string{
		`{"name": "Jane", "skills": ["Go"], "experience": [], "education": [], "achievements": []}`,
		`{"match_rate": 0.5, "feedback": "ok"}`,
		`{"score": 3.0, "feedback": "ok"}`,
	}

	ctx := context.Background()
	id := evalRepo.eval.ID

	if err := pipeline.HandleStage(ctx, StageCVEvaluation, id); err != nil {
		t.Fatalf("cv stage failed: %v", err)
	}
	first := evalRepo.eval.StartedAt

	if err := pipeline.HandleStage(ctx, StageProjectEvaluation, id); err != nil {
		t.Fatalf("project stage failed: %v", err)
	}

	if evalRepo.eval.StartedAt != first {
		t.Error("started_at changed on a later stage entry")
	}
}

func TestPipelineRescueForcesFailedState(t *testing.T) {
	evalRepo, pipeline, _, _ := newPipelineFixture("cv text", "report")
	evalRepo.eval.Status = models.StatusProcessing

	pipeline.Rescue(evalRepo.eval.ID, StageProjectEvaluation)

	if evalRepo.eval.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", evalRepo.eval.Status)
	}
	if evalRepo.eval.CompletedAt == nil {
		t.Error("rescue must stamp completed_at")
	}
}

func TestPipelineUnknownStage(t *testing.T) {
	evalRepo, pipeline, _, _ := newPipelineFixture("cv text", "report")

	err := pipeline.HandleStage(context.Background(), Stage("nonsense"), evalRepo.eval.ID)
	if err == nil {
		t.Fatal("expected error for unknown stage")
	}
}
