package ingest

import "fmt"

// Stage is a step of the ingest pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageUploading   Stage = "uploading"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageEmbedding   Stage = "embedding"
	StagePersisting  Stage = "persisting"
	StageComplete    Stage = "complete"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{
	StageUploading, StageExtracting, StageNormalizing,
	StageEmbedding, StagePersisting, StageComplete,
}

// Progress returns the advisory completion percentage reported on entering the stage.
func (s Stage) Progress() int {
	switch s {
	case StageUploading:
		return 0
	case StageExtracting:
		return 50
	case StageNormalizing:
		return 60
	case StageEmbedding:
		return 70
	case StagePersisting:
		return 90
	case StageComplete:
		return 100
	default:
		return 0
	}
}

// StageError marks the stage at which ingest stopped.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
