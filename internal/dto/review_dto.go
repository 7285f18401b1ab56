package dto

// AcceptGradeRequest is the payload for accepting an AI grading.
type AcceptGradeRequest struct {
	SubmissionID uint   `json:"submission_id" validate:"required,gt=0"`
	Notes        string `json:"notes"`
}

// DeclineGradeRequest is the payload for declining an AI grading. A decline
// always triggers a re-grade with the reason as evaluator context.
type DeclineGradeRequest struct {
	SubmissionID uint   `json:"submission_id" validate:"required,gt=0"`
	Reason       string `json:"reason" validate:"required,min=3"`
}

// ReviewStatsResponse aggregates the teacher's grading queue.
type ReviewStatsResponse struct {
	Total             int64            `json:"total"`
	ByStatus          map[string]int64 `json:"by_status"`
	AverageFinalScore float64          `json:"average_final_score"`
	CacheHit          bool             `json:"cache_hit,omitempty"`
}
