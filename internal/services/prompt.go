package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// ParsedCV is the structured form of a candidate CV extracted by the model.
type ParsedCV struct {
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Experience   []string `json:"experience"`
	Education    []string `json:"education"`
	Achievements []string `json:"achievements"`
}

// BuildCVParsePrompt asks the model to extract structured fields from raw CV
// text.
func (pb *PromptBuilder) BuildCVParsePrompt(cvText string) string {
	return fmt.Sprintf(`You are a CV parser. Extract structured information from the following CV text.

Return ONLY a valid JSON object with this exact structure (no markdown, no extra text):
{
  "name": "candidate full name",
  "skills": ["skill1", "skill2"],
  "experience": ["experience1", "experience2"],
  "education": ["education1", "education2"],
  "achievements": ["achievement1", "achievement2"]
}

CV Text:
%s`, truncate(cvText, 4000))
}

// BuildCVEvaluationPrompt composes the CV scoring prompt from the retrieved
// job-description context, the CV rubric and the parsed candidate data.
func (pb *PromptBuilder) BuildCVEvaluationPrompt(jobTitle string, jobDescContext, cvRubric []string, parsed *ParsedCV, cvText string) string {
	return fmt.Sprintf(`You are an expert HR evaluator. Evaluate the following CV against the job requirements and scoring rubric.

JOB TITLE: %s

JOB DESCRIPTION REQUIREMENTS:
%s

CV SCORING RUBRIC:
%s

CANDIDATE CV DATA:
Name: %s
Skills: %s
Experience: %s
Education: %s
Achievements: %s

FULL CV TEXT:
%s

Provide your evaluation as a JSON object with this structure:
{
  "match_rate": 0.85,
  "feedback": "Detailed feedback covering technical skills, experience, achievements, and cultural fit..."
}
match_rate must be a float between 0.0 and 1.0.

Consider:
1. Technical Skills Match (40%% weight)
2. Experience Level (25%% weight)
3. Relevant Achievements (20%% weight)
4. Cultural/Collaboration Fit (15%% weight)

Return ONLY valid JSON.`,
		jobTitle,
		joinContext(jobDescContext),
		joinContext(cvRubric),
		parsed.Name,
		strings.Join(parsed.Skills, ", "),
		strings.Join(parsed.Experience, "\n"),
		strings.Join(parsed.Education, "\n"),
		strings.Join(parsed.Achievements, "\n"),
		truncate(cvText, 3000),
	)
}

// BuildProjectEvaluationPrompt composes the project scoring prompt from the
// case study context and project rubric.
func (pb *PromptBuilder) BuildProjectEvaluationPrompt(caseStudyContext, projectRubric []string, projectText string) string {
	return fmt.Sprintf(`You are an expert technical evaluator. Evaluate the following project report against the case study brief and scoring rubric.

CASE STUDY BRIEF REQUIREMENTS:
%s

PROJECT SCORING RUBRIC:
%s

PROJECT REPORT:
%s

Provide your evaluation as a JSON object with this structure:
{
  "score": 4.2,
  "feedback": "Detailed feedback covering correctness, code quality, resilience, documentation, and creativity..."
}
score must be a float between 1.0 and 5.0.

Evaluate based on:
1. Correctness (Prompt & Chaining) - 30%% weight
2. Code Quality & Structure - 25%% weight
3. Resilience & Error Handling - 20%% weight
4. Documentation & Explanation - 15%% weight
5. Creativity / Bonus - 10%% weight

Return ONLY valid JSON.`,
		joinContext(caseStudyContext),
		joinContext(projectRubric),
		truncate(projectText, 4000),
	)
}

// BuildFinalAnalysisPrompt composes the synthesis prompt from both prior
// stage results.
func (pb *PromptBuilder) BuildFinalAnalysisPrompt(jobTitle string, cvMatchRate float64, cvFeedback string, projectScore float64, projectFeedback string) string {
	return fmt.Sprintf(`You are an expert hiring manager making a final decision on a candidate.

POSITION: %s

CV EVALUATION:
- Match Rate: %.2f/1.0
- Feedback: %s

PROJECT EVALUATION:
- Score: %.2f/5.0
- Feedback: %s

Based on the above evaluations, provide a concise overall summary (3-5 sentences) that:
1. Highlights the candidate's key strengths
2. Identifies any gaps or areas for improvement
3. Provides a clear recommendation (Strong Hire / Hire / Maybe / Pass)

Return ONLY a JSON object:
{
  "summary": "Your 3-5 sentence summary here...",
  "recommendation": "Strong Hire" | "Hire" | "Maybe" | "Pass"
}`,
		jobTitle, cvMatchRate, cvFeedback, projectScore, projectFeedback)
}

// CVRubricQuery is the fixed retrieval query for CV scoring criteria.
const CVRubricQuery = "CV evaluation criteria scoring guide technical skills experience achievements cultural fit"

// ProjectRubricQuery is the fixed retrieval query for project scoring criteria.
const ProjectRubricQuery = "project evaluation criteria correctness code quality resilience documentation creativity"

// BuildCVRetrievalQuery builds the job-description retrieval query from the
// job title and the parsed candidate profile.
func (pb *PromptBuilder) BuildCVRetrievalQuery(jobTitle string, parsed *ParsedCV) string {
	return fmt.Sprintf("%s\n%s\n%s",
		jobTitle,
		strings.Join(parsed.Skills, ", "),
		strings.Join(parsed.Experience, "\n"),
	)
}

func joinContext(chunks []string) string {
	if len(chunks) == 0 {
		return "No relevant context found."
	}
	return strings.Join(chunks, "\n\n")
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
