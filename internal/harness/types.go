package harness

import "github.com/roach88/cogtask/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held and the load
	// error count matched.
	Pass bool `json:"pass"`

	// SessionID is the id the rows were stored under.
	SessionID string `json:"session_id"`

	// Seed is the shuffle seed the run used.
	Seed int64 `json:"seed"`

	// Rows are the exported rows, read back from the store.
	Rows []ir.ExportRow `json:"rows"`

	// CSV is the response log exactly as the run command writes it.
	CSV []byte `json:"-"`

	// LoadErrors holds block loading errors reported by the scheduler.
	LoadErrors []string `json:"load_errors,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Rows:   []ir.ExportRow{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
