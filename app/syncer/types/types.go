package types

// Pipeline stages, used to tag where a run ended.
const (
	StageValidation    = "validation"
	StageSync          = "sync"
	StageTransform     = "transform"
	StageEmptyData     = "empty_data_handling"
	StageOrchestration = "orchestration"
	StageComplete      = "complete"
)

// SyncPipelineInput parameterizes one pipeline run.
type SyncPipelineInput struct {
	Trigger string `json:"trigger"` // "cron", "manual"

	// SnapshotKeep is how many snapshots to retain per entity after fetch.
	// Zero means the default of 3.
	SnapshotKeep int `json:"snapshotKeep"`
}

// ValidateSourceInput is empty today; the gate always anchors on boards.
type ValidateSourceInput struct{}

// ValidateSourceOutput reports whether the source has data worth syncing.
type ValidateSourceOutput struct {
	HasData    bool    `json:"hasData"`
	Count      int     `json:"count"`
	Message    string  `json:"message"`
	DurationMs float64 `json:"durationMs"`
}

// FetchEntityInput asks for one entity's payload to be snapshotted.
type FetchEntityInput struct {
	Entity       string `json:"entity"`
	SnapshotKeep int    `json:"snapshotKeep"`
}

// FetchEntityOutput describes one stored snapshot.
type FetchEntityOutput struct {
	Entity     string  `json:"entity"`
	SnapshotID int64   `json:"snapshotId"`
	Bytes      int     `json:"bytes"`
	Pruned     int64   `json:"pruned"`
	DurationMs float64 `json:"durationMs"`
}

// TransformEntityInput asks for one entity's latest snapshot to be
// transformed into a fresh generation.
type TransformEntityInput struct {
	Entity string `json:"entity"`
}

// TransformEntityOutput describes one completed generation flip.
type TransformEntityOutput struct {
	Entity     string  `json:"entity"`
	Generation int     `json:"generation"`
	SnapshotID int64   `json:"snapshotId"`
	Inserted   int     `json:"inserted"`
	Skipped    int     `json:"skipped"`
	DurationMs float64 `json:"durationMs"`
}

// EmptyGenerationsInput is empty; the empty path always covers all entities.
type EmptyGenerationsInput struct{}

// EmptyGenerationsOutput reports which entities were flipped to empty
// generations. Error carries a mid-walk failure; the flips listed in
// Completed are committed either way, so the activity reports the failure
// in its output instead of failing (a failed activity's output is discarded
// and a retry would flip the completed entities again).
type EmptyGenerationsOutput struct {
	Completed  []string `json:"completed"`
	Error      string   `json:"error,omitempty"`
	DurationMs float64  `json:"durationMs"`
}

// EntityFailure records one entity whose stage operation failed, with the
// error string for that entity alone.
type EntityFailure struct {
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// SyncRunResult is the pipeline's run summary. The workflow always returns
// one, whether the run succeeded, aborted or took the empty-data path.
type SyncRunResult struct {
	Success       bool                    `json:"success"`
	Stage         string                  `json:"stage"`
	Trigger       string                  `json:"trigger"`
	Error         string                  `json:"error,omitempty"`
	Validation    ValidateSourceOutput    `json:"validation"`
	Fetched       []FetchEntityOutput     `json:"fetched,omitempty"`
	FetchFailures []EntityFailure         `json:"fetchFailures,omitempty"`
	Transforms    []TransformEntityOutput `json:"transforms,omitempty"`
	Failures      []EntityFailure         `json:"failures,omitempty"`
	Emptied       []string                `json:"emptied,omitempty"`
	StartedAt     string                  `json:"startedAt"`
	FinishedAt    string                  `json:"finishedAt"`
}
