package services

// Stage identifies one phase of the evaluation pipeline. The chain is fixed:
// CV scoring, then project scoring, then final synthesis.
type Stage string

const (
	StageCVEvaluation      Stage = "cv_evaluation"
	StageProjectEvaluation Stage = "project_evaluation"
	StageFinalAnalysis     Stage = "final_analysis"
)

// Next returns the stage dispatched after this one completes successfully.
// The final stage has no successor.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageCVEvaluation:
		return StageProjectEvaluation, true
	case StageProjectEvaluation:
		return StageFinalAnalysis, true
	default:
		return "", false
	}
}

func (s Stage) Valid() bool {
	switch s {
	case StageCVEvaluation, StageProjectEvaluation, StageFinalAnalysis:
		return true
	default:
		return false
	}
}
