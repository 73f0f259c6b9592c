package domain

import "time"

// PipelineVariant selects which edit models and masks the stages use.
type PipelineVariant string

const (
	// PipelineDalleGPT runs the first two edit stages against the DALL-E
	// edit endpoint and finalizes head-only with gpt-image-1.
	PipelineDalleGPT PipelineVariant = "dalle_gpt"
	// PipelineGPTOnly runs every stage against gpt-image-1 and adds body
	// fur in the final stage.
	PipelineGPTOnly PipelineVariant = "gpt_only"
)

// JobStatus enumerates transformation lifecycle states.
type JobStatus string

const (
	StatusUploaded        JobStatus = "uploaded"
	StatusDetecting       JobStatus = "detecting"
	StatusGenerating1     JobStatus = "generating_1"
	StatusGenerating2     JobStatus = "generating_2"
	StatusGeneratingFinal JobStatus = "generating_final"
	StatusCompleted       JobStatus = "completed"
	StatusError           JobStatus = "error"
)

// statusOrder gives each forward state its position in the pipeline.
// Terminal error sits outside the ordering.
var statusOrder = map[JobStatus]int{
	StatusUploaded:        0,
	StatusDetecting:       1,
	StatusGenerating1:     2,
	StatusGenerating2:     3,
	StatusGeneratingFinal: 4,
	StatusCompleted:       5,
}

// Slot names one of the four image payload positions on a job.
type Slot string

const (
	SlotOriginal Slot = "original"
	SlotStage1   Slot = "stage1"
	SlotStage2   Slot = "stage2"
	SlotFinal    Slot = "final"
)

// Slots lists every slot in pipeline order.
var Slots = []Slot{SlotOriginal, SlotStage1, SlotStage2, SlotFinal}

// ValidSlot reports whether name is a known slot.
func ValidSlot(name string) bool {
	switch Slot(name) {
	case SlotOriginal, SlotStage1, SlotStage2, SlotFinal:
		return true
	}
	return false
}

// ValidVariant reports whether v names a runnable pipeline variant.
// "both" is an upload selector, not a variant, and is expanded at the boundary.
func ValidVariant(v string) bool {
	switch PipelineVariant(v) {
	case PipelineDalleGPT, PipelineGPTOnly:
		return true
	}
	return false
}

// Job represents one user's request to transform one uploaded photo.
type Job struct {
	ID           string
	UserID       string
	BatchID      string // empty unless the upload requested both variants
	Pipeline     PipelineVariant
	Breed        string // catalog key, set once detection resolves
	Status       JobStatus
	ErrorMessage string
	Original     []byte
	Stage1       []byte
	Stage2       []byte
	Final        []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanAdvance reports whether moving from s to next is a legal transition:
// one step forward through the pipeline, or a jump from any non-terminal
// state to error.
func (s JobStatus) CanAdvance(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusError {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ProgressPercent maps a status onto the dashboard progress bar.
func (s JobStatus) ProgressPercent() float64 {
	switch s {
	case StatusDetecting:
		return 12.5
	case StatusGenerating1:
		return 37.5
	case StatusGenerating2:
		return 62.5
	case StatusGeneratingFinal:
		return 87.5
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// SlotBytes returns the payload stored in the named slot, nil when the
// producing stage has not completed.
func (j *Job) SlotBytes(slot Slot) []byte {
	switch slot {
	case SlotOriginal:
		return j.Original
	case SlotStage1:
		return j.Stage1
	case SlotStage2:
		return j.Stage2
	case SlotFinal:
		return j.Final
	}
	return nil
}

// JobListing is the dashboard projection of a job: metadata plus slot
// presence, without the image payloads.
type JobListing struct {
	ID           string
	BatchID      string
	Pipeline     PipelineVariant
	Breed        string
	Status       JobStatus
	ErrorMessage string
	CreatedAt    time.Time
	DisplayIndex int // 1-based rank among the owner's jobs by creation time
	HasOriginal  bool
	HasStage1    bool
	HasStage2    bool
	HasFinal     bool
}
