package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"shaggydog/internal/breed"
	"shaggydog/internal/domain"
	"shaggydog/internal/imaging"
	"shaggydog/internal/infra"
	"shaggydog/internal/storage"
	"shaggydog/internal/vision"
)

// Classifier answers which catalog breed best matches a headshot.
type Classifier interface {
	Classify(ctx context.Context, png []byte, instruction string) (string, error)
}

// Editor performs one masked image edit.
type Editor interface {
	Edit(ctx context.Context, req vision.EditRequest) ([]byte, error)
}

// Models names the edit models each variant uses. The final stage always
// runs on the GPT edit model; the variants differ in stages one and two and
// in the final mask.
type Models struct {
	DalleEdit string
	GPTEdit   string
}

// Executor runs one job through detection and the three edit stages,
// persisting every transition so pollers can follow along.
type Executor struct {
	jobs       domain.JobRepository
	classifier Classifier
	editor     Editor
	mirror     storage.ObjectStore
	logger     infra.Logger
	models     Models
	metrics    *Metrics
}

// NewExecutor wires an executor. mirror may be nil; metrics may be nil.
func NewExecutor(jobs domain.JobRepository, classifier Classifier, editor Editor, mirror storage.ObjectStore, logger infra.Logger, models Models, metrics *Metrics) *Executor {
	return &Executor{
		jobs:       jobs,
		classifier: classifier,
		editor:     editor,
		mirror:     mirror,
		logger:     logger,
		models:     models,
		metrics:    metrics,
	}
}

// stage descriptors carry the user-facing stage label used in error messages.
type stageSpec struct {
	name   string
	label  string
	slot   domain.Slot
	next   domain.JobStatus
	mask   imaging.MaskKind
	model  string
	prompt string
}

// Run executes the full pipeline for jobID. A domain.ErrJobFinished from any
// persistence call means another actor already finalized the job; Run stops
// without calling the edit API again.
func (e *Executor) Run(ctx context.Context, jobID string) error {
	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("pipeline: load job: %w", err)
	}
	variant := string(job.Pipeline)
	e.metrics.dispatched(variant)

	if err := e.jobs.SetStatus(ctx, jobID, domain.StatusDetecting); err != nil {
		return e.abortOrFail(ctx, jobID, variant, "detection", err)
	}

	selected := e.detectBreed(ctx, job)
	if err := e.jobs.SetBreed(ctx, jobID, string(selected)); err != nil {
		return e.abortOrFail(ctx, jobID, variant, "detection", err)
	}
	if err := e.jobs.SetStatus(ctx, jobID, domain.StatusGenerating1); err != nil {
		return e.abortOrFail(ctx, jobID, variant, "detection", err)
	}

	stageModel := e.models.GPTEdit
	if job.Pipeline == domain.PipelineDalleGPT {
		stageModel = e.models.DalleEdit
	}
	finalMask := imaging.MaskHeadBody
	finalPrompt := BodyFurPrompt(selected)
	if job.Pipeline == domain.PipelineDalleGPT {
		finalMask = imaging.MaskFullHead
		finalPrompt = EnhancePrompt(selected)
	}

	stages := []stageSpec{
		{
			name:   "stage1",
			label:  "Stage 1 Error (adding ears)",
			slot:   domain.SlotStage1,
			next:   domain.StatusGenerating2,
			mask:   imaging.MaskSafeRadius,
			model:  stageModel,
			prompt: EarPrompt(selected),
		},
		{
			name:   "stage2",
			label:  "Stage 2 Error (adding snout)",
			slot:   domain.SlotStage2,
			next:   domain.StatusGeneratingFinal,
			mask:   imaging.MaskFace,
			model:  stageModel,
			prompt: SnoutPrompt(selected),
		},
		{
			name:   "stage3",
			label:  "Stage 3 Error (finalizing)",
			slot:   domain.SlotFinal,
			next:   domain.StatusCompleted,
			mask:   finalMask,
			model:  e.models.GPTEdit,
			prompt: finalPrompt,
		},
	}

	input := job.Original
	for _, stage := range stages {
		output, err := e.runStage(ctx, variant, stage, input)
		if err != nil {
			return e.fail(ctx, jobID, variant, stage.name, fmt.Sprintf("%s: %v", stage.label, err))
		}
		if err := e.jobs.SetStageResult(ctx, jobID, stage.slot, output, stage.next); err != nil {
			return e.abortOrFail(ctx, jobID, variant, stage.name, err)
		}
		e.mirrorSlot(ctx, jobID, stage.slot, output)
		input = output
	}

	e.metrics.completed(variant)
	e.logger.Info().Str("job_id", jobID).Str("pipeline", variant).Str("breed", string(selected)).Msg("pipeline: job completed")
	return nil
}

// detectBreed asks the classifier and maps its answer onto the catalog.
// Detection never stops the pipeline: an answer naming a catalog breed wins
// even when it is wrapped in apologetic phrasing, a refusal with no breed in
// it picks a random one, and anything else falls back to the default.
func (e *Executor) detectBreed(ctx context.Context, job *domain.Job) breed.Breed {
	raw, err := e.classifier.Classify(ctx, job.Original, ClassifyInstruction())
	if err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: breed detection failed, using default")
		return breed.Default
	}
	if b, ok := breed.Normalize(raw); ok {
		return b
	}
	if breed.Refused(raw) {
		keys := breed.Keys()
		selected := keys[rand.IntN(len(keys))]
		e.logger.Warn().Str("job_id", job.ID).Str("breed", string(selected)).Msg("pipeline: classifier refused, picked random breed")
		return selected
	}
	e.logger.Warn().Str("job_id", job.ID).Str("answer", raw).Msg("pipeline: unparseable breed answer, using default")
	return breed.Default
}

// runStage prepares the input for the edit API, renders the stage mask at the
// effective size, and performs the edit.
func (e *Executor) runStage(ctx context.Context, variant string, stage stageSpec, input []byte) ([]byte, error) {
	started := time.Now()
	prepared, size, err := imaging.PrepareForEdit(input, imaging.DefaultAPISize)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}
	mask, err := imaging.RenderMask(stage.mask, size)
	if err != nil {
		return nil, fmt.Errorf("render mask: %w", err)
	}
	output, err := e.editor.Edit(ctx, vision.EditRequest{
		Model:  stage.model,
		Image:  prepared,
		Mask:   mask,
		Prompt: stage.prompt,
		Size:   size,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.observeStage(variant, stage.name, time.Since(started).Seconds())
	e.logger.Info().Str("stage", stage.name).Str("pipeline", variant).Int("size", size).Msg("pipeline: stage done")
	return output, nil
}

// fail moves the job to the terminal error status with a stage-labelled
// message and reports the failure.
func (e *Executor) fail(ctx context.Context, jobID, variant, stage, message string) error {
	e.metrics.failed(variant, stage)
	e.logger.Error().Str("job_id", jobID).Str("stage", stage).Str("reason", message).Msg("pipeline: job failed")
	if err := e.jobs.SetError(ctx, jobID, message); err != nil {
		e.logger.Error().Err(err).Str("job_id", jobID).Msg("pipeline: record error status failed")
	}
	return errors.New(message)
}

// abortOrFail distinguishes a job that somebody else already finalized from a
// persistence failure. The former stops quietly; the latter is a real error.
func (e *Executor) abortOrFail(ctx context.Context, jobID, variant, stage string, err error) error {
	if errors.Is(err, domain.ErrJobFinished) {
		e.logger.Warn().Str("job_id", jobID).Str("stage", stage).Msg("pipeline: job already finished, aborting")
		return err
	}
	return e.fail(ctx, jobID, variant, stage, fmt.Sprintf("persistence error during %s: %v", stage, err))
}

// mirrorSlot copies a stage output to the object store. Mirroring is best
// effort and never fails the pipeline.
func (e *Executor) mirrorSlot(ctx context.Context, jobID string, slot domain.Slot, data []byte) {
	if e.mirror == nil {
		return
	}
	key := fmt.Sprintf("jobs/%s/%s.png", jobID, slot)
	if _, err := e.mirror.Write(ctx, key, data); err != nil {
		e.logger.Warn().Err(err).Str("job_id", jobID).Str("slot", string(slot)).Msg("pipeline: mirror write failed")
	}
}
