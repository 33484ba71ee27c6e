package grading

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/codelab-portal/internal/models"
)

// State is the externally visible phase of a Gate.
type State string

// Gate states.
const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateRunAllPass      State = "run_all_pass"
	StateRunPartial      State = "run_partial"
	StateRunFailed       State = "run_failed"
	StateSubmittingFinal State = "submitting_final"
	StateFinalAccepted   State = "final_accepted"
	StateFinalRejected   State = "final_rejected"
)

// DefaultRejectionMessage is shown when a rejected final submission carries no message.
const DefaultRejectionMessage = "submission failed"

var (
	// ErrNoExercise indicates the gate has not been pointed at an exercise.
	ErrNoExercise = errors.New("no exercise is open")
	// ErrRunInFlight indicates a trial run is already pending.
	ErrRunInFlight = errors.New("a run is already in progress")
	// ErrFinalInFlight indicates a final submission is already pending.
	ErrFinalInFlight = errors.New("a final submission is already in progress")
	// ErrControlsLocked indicates the workspace is locked by a pending or accepted final submission.
	ErrControlsLocked = errors.New("controls are locked")
	// ErrGateClosed indicates the latest run did not pass every test case.
	ErrGateClosed = errors.New("all test cases must pass before final submission")
	// ErrSolutionChanged indicates the final submission differs from the code of the passing run.
	ErrSolutionChanged = fmt.Errorf("%w: run the code you want to submit first", ErrGateClosed)
)

// RunTicket identifies one trial run. Results are applied only while the ticket is current.
type RunTicket struct {
	ExerciseID uint   `json:"exerciseId"`
	Token      uint64 `json:"token"`
}

// FinalTicket identifies one final submission.
type FinalTicket struct {
	ExerciseID uint   `json:"exerciseId"`
	Token      uint64 `json:"token"`
}

// FinalOutcome is the displayed result of a final submission.
type FinalOutcome struct {
	Accepted     bool      `json:"accepted"`
	SubmissionID uint      `json:"submissionId,omitempty"`
	Status       string    `json:"status,omitempty"`
	Score        *float64  `json:"score,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Snapshot is a consistent copy of the gate's state.
type Snapshot struct {
	ExerciseID         uint                  `json:"exerciseId"`
	State              State                 `json:"state"`
	Verdicts           []models.TrialVerdict `json:"verdicts"`
	Passed             int                   `json:"passed"`
	Total              int                   `json:"total"`
	AllPass            bool                  `json:"allPass"`
	RunEnabled         bool                  `json:"runEnabled"`
	FinalSubmitEnabled bool                  `json:"finalSubmitEnabled"`
	RunError           string                `json:"runError,omitempty"`
	Final              *FinalOutcome         `json:"final,omitempty"`
}

// Gate decides when a final submission may be made for the exercise currently
// open in a workspace. It is safe for concurrent use.
type Gate struct {
	mu sync.Mutex

	exerciseID uint
	testCases  int

	verdicts []models.TrialVerdict
	ran      bool
	allPass  bool
	solution Solution

	seq         uint64
	running     bool
	runToken    uint64
	runSolution Solution
	runFailed   bool
	runError    string
	finalizing  bool
	finalToken  uint64
	final       *FinalOutcome
}

// NewGate returns an idle gate.
func NewGate() *Gate {
	return &Gate{}
}

// Enter points the gate at an exercise with the given number of test cases. A
// different exercise id resets the gate; the same id only refreshes the test-case
// count and re-checks the pass flag. It reports whether a reset happened.
func (g *Gate) Enter(exerciseID uint, testCases int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.exerciseID == exerciseID {
		g.testCases = testCases
		if len(g.verdicts) > testCases {
			g.verdicts = g.verdicts[:testCases]
		}
		g.allPass = g.ran && AllPass(g.verdicts, testCases)
		return false
	}

	g.exerciseID = exerciseID
	g.testCases = testCases
	g.verdicts = nil
	g.ran = false
	g.allPass = false
	g.solution = ""
	g.running = false
	g.runToken = 0
	g.runSolution = ""
	g.runFailed = false
	g.runError = ""
	g.finalizing = false
	g.finalToken = 0
	g.final = nil
	return true
}

// ExerciseID returns the exercise the gate is pointed at.
func (g *Gate) ExerciseID() uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exerciseID
}

// BeginRun starts a trial run of solution. The final-submit control is left as it was.
func (g *Gate) BeginRun(solution Solution) (RunTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.exerciseID == 0 {
		return RunTicket{}, ErrNoExercise
	}
	if g.finalizing || g.finalAccepted() {
		return RunTicket{}, ErrControlsLocked
	}
	if g.running {
		return RunTicket{}, ErrRunInFlight
	}

	g.seq++
	g.runToken = g.seq
	g.runSolution = solution
	g.running = true
	g.runFailed = false
	g.runError = ""
	g.final = nil

	return RunTicket{ExerciseID: g.exerciseID, Token: g.runToken}, nil
}

// CompleteRun replaces the trial verdicts with the result of the run identified
// by ticket. Results for an older run or another exercise are discarded and
// CompleteRun returns false.
func (g *Gate) CompleteRun(ticket RunTicket, verdicts []models.TrialVerdict) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.currentRun(ticket) {
		return false
	}

	if len(verdicts) > g.testCases {
		verdicts = verdicts[:g.testCases]
	}
	g.verdicts = append([]models.TrialVerdict(nil), verdicts...)
	g.ran = true
	g.allPass = AllPass(g.verdicts, g.testCases)
	g.solution = g.runSolution
	g.running = false
	g.runFailed = false
	g.runError = ""
	return true
}

// FailRun marks the current run as failed. Verdicts from the last successful run
// are kept so the previous result stays visible.
func (g *Gate) FailRun(ticket RunTicket, message string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.currentRun(ticket) {
		return false
	}

	g.running = false
	g.runFailed = true
	g.runError = message
	return true
}

// BeginFinal starts a final submission of solution. The pass flag is checked
// again here regardless of what the caller displayed, and solution must be the
// one whose run set it. A run still in flight is retired; its result will be
// discarded as stale.
func (g *Gate) BeginFinal(solution Solution) (FinalTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.exerciseID == 0 {
		return FinalTicket{}, ErrNoExercise
	}
	if g.finalizing {
		return FinalTicket{}, ErrFinalInFlight
	}
	if g.finalAccepted() {
		return FinalTicket{}, ErrControlsLocked
	}
	if !g.allPass {
		return FinalTicket{}, ErrGateClosed
	}
	if solution != g.solution {
		return FinalTicket{}, ErrSolutionChanged
	}

	g.seq++
	g.finalToken = g.seq
	g.finalizing = true
	g.running = false
	g.runToken = 0
	g.runSolution = ""
	g.final = nil

	return FinalTicket{ExerciseID: g.exerciseID, Token: g.finalToken}, nil
}

// CompleteFinal records an accepted final submission. The outcome stays on
// display until Dismiss is called.
func (g *Gate) CompleteFinal(ticket FinalTicket, outcome FinalOutcome) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.currentFinal(ticket) {
		return false
	}

	outcome.Accepted = true
	g.finalizing = false
	g.final = &outcome
	return true
}

// RejectFinal records a failed final submission and re-enables the controls.
func (g *Gate) RejectFinal(ticket FinalTicket, message string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.currentFinal(ticket) {
		return false
	}

	if message == "" {
		message = DefaultRejectionMessage
	}
	g.finalizing = false
	g.final = &FinalOutcome{Accepted: false, Message: message}
	return true
}

// Dismiss closes the displayed final outcome. It has no effect while a final
// submission is pending.
func (g *Gate) Dismiss() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalizing || g.final == nil {
		return false
	}
	g.final = nil
	return true
}

// Snapshot returns a copy of the current state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	summary := Summary(g.verdicts, g.testCases)
	snap := Snapshot{
		ExerciseID: g.exerciseID,
		State:      g.state(),
		Verdicts:   append([]models.TrialVerdict{}, g.verdicts...),
		Passed:     summary.Passed,
		Total:      summary.Total,
		AllPass:    g.allPass,
		RunError:   g.runError,
	}

	locked := g.exerciseID == 0 || g.finalizing || g.finalAccepted()
	snap.RunEnabled = !locked && !g.running
	snap.FinalSubmitEnabled = !locked && g.allPass

	if g.final != nil {
		final := *g.final
		snap.Final = &final
	}
	return snap
}

func (g *Gate) state() State {
	switch {
	case g.finalizing:
		return StateSubmittingFinal
	case g.final != nil && g.final.Accepted:
		return StateFinalAccepted
	case g.final != nil:
		return StateFinalRejected
	case g.running:
		return StateRunning
	case g.runFailed:
		return StateRunFailed
	case !g.ran:
		return StateIdle
	case g.allPass:
		return StateRunAllPass
	default:
		return StateRunPartial
	}
}

func (g *Gate) finalAccepted() bool {
	return g.final != nil && g.final.Accepted
}

func (g *Gate) currentRun(ticket RunTicket) bool {
	return g.running && ticket.ExerciseID == g.exerciseID && ticket.Token == g.runToken
}

func (g *Gate) currentFinal(ticket FinalTicket) bool {
	return g.finalizing && ticket.ExerciseID == g.exerciseID && ticket.Token == g.finalToken
}
