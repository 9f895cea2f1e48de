package ticket

// Stage is a step of building a ticket workspace.
type Stage string

const (
	StageStart        Stage = "start"
	StageValidating   Stage = "validating"
	StageBinding      Stage = "binding"
	StageSynthesizing Stage = "synthesizing"
	StageRendering    Stage = "rendering"
	StageDone         Stage = "done"
)

// StageError reports the stage a run stopped in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
