package types

import "time"

// TaskPhase is the lifecycle phase of an indexing job
type TaskPhase string

const (
	PhaseScheduled   TaskPhase = "scheduled"
	PhaseParsing     TaskPhase = "parsing"
	PhaseSummarizing TaskPhase = "summarizing"
	PhaseEmbedding   TaskPhase = "embedding"
	PhaseCompleted   TaskPhase = "completed"
	PhaseError       TaskPhase = "error"
)

// Terminal reports whether the phase ends the job's lifecycle.
func (p TaskPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

// TaskProgress is the full indexing state of one folder. Subscribers always
// receive a complete copy, never a partial update.
type TaskProgress struct {
	Folder             string    `json:"folder"`
	JobID              string    `json:"job_id,omitempty"`
	Phase              TaskPhase `json:"phase"`
	TotalFiles         int       `json:"total_files"`
	TotalDocuments     int       `json:"total_documents"`
	ProcessedDocuments int       `json:"processed_documents"`
	Percent            int       `json:"percent"`
	Message            string    `json:"message,omitempty"`
	Error              string    `json:"error,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProgressPatch is a partial progress update. Nil fields leave the stored
// state untouched.
type ProgressPatch struct {
	Phase              *TaskPhase
	TotalFiles         *int
	TotalDocuments     *int
	ProcessedDocuments *int
	Percent            *int
	Message            *string
	Error              *string
}

// Apply merges the patch into the state, field by field.
func (s *TaskProgress) Apply(p ProgressPatch) {
	if p.Phase != nil {
		s.Phase = *p.Phase
	}
	if p.TotalFiles != nil {
		s.TotalFiles = *p.TotalFiles
	}
	if p.TotalDocuments != nil {
		s.TotalDocuments = *p.TotalDocuments
	}
	if p.ProcessedDocuments != nil {
		s.ProcessedDocuments = *p.ProcessedDocuments
	}
	if p.Percent != nil {
		s.Percent = *p.Percent
	}
	if p.Message != nil {
		s.Message = *p.Message
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }
