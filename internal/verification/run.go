// Package verification records URL liveness checks and reports
// programs whose latest check failed.
package verification

import (
	"time"

	"github.com/JaimeStill/affwiki/pkg/urlcheck"
)

// URLTypeSignup is the url_type of a program's signup URL.
const URLTypeSignup = "signup"

// Target is one URL to verify for a program. An empty URL means the
// program's current signup URL.
type Target struct {
	ProgramID int64  `json:"program_id"`
	URL       string `json:"url"`
	URLType   string `json:"url_type"`
}

// VerifyCommand is the body of a batch verification request.
type VerifyCommand struct {
	URLs []Target `json:"urls"`
}

// Result is the outcome for one target. Skipped targets were never
// checked and carry the reason.
type Result struct {
	ProgramID int64  `json:"program_id"`
	URLType   string `json:"url_type"`
	urlcheck.Outcome
	ResponseTimeMS int    `json:"response_time_ms,omitempty"`
	RunID          int64  `json:"run_id,omitempty"`
	Skipped        string `json:"skipped,omitempty"`
}

// Counts tallies results by status.
type Counts struct {
	Success  int `json:"success"`
	Redirect int `json:"redirect"`
	Broken   int `json:"broken"`
	Timeout  int `json:"timeout"`
	Skipped  int `json:"skipped"`
}

func (c *Counts) add(r Result) {
	if r.Skipped != "" {
		c.Skipped++
		return
	}
	switch r.Status {
	case urlcheck.StatusSuccess:
		c.Success++
	case urlcheck.StatusRedirect:
		c.Redirect++
	case urlcheck.StatusBroken:
		c.Broken++
	case urlcheck.StatusTimeout:
		c.Timeout++
	}
}

// Summary is the response to a batch verification.
type Summary struct {
	Verified int      `json:"verified"`
	Results  []Result `json:"results"`
	Counts   Counts   `json:"summary"`
}

// BrokenURL is a program whose latest check failed.
type BrokenURL struct {
	ProgramID   int64           `json:"program_id"`
	ProgramName string          `json:"program_name"`
	Domain      string          `json:"domain"`
	URL         string          `json:"url"`
	URLType     string          `json:"url_type"`
	Status      urlcheck.Status `json:"status"`
	HTTPCode    *int            `json:"http_status_code"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// BrokenQuery bounds a broken URL listing.
type BrokenQuery struct {
	Limit       int `json:"limit"`
	MinAgeHours int `json:"min_age_hours"`
}

// Broken listing bounds.
const (
	DefaultBrokenLimit = 100
	MaxBrokenLimit     = 500
	DefaultMinAgeHours = 24
)

// BrokenPage is the broken URL listing response.
type BrokenPage struct {
	Items       []BrokenURL `json:"items"`
	Total       int         `json:"total"`
	Limit       int         `json:"limit"`
	MinAgeHours int         `json:"min_age_hours"`
}

// Candidate is a program due for a signup URL check.
type Candidate struct {
	ProgramID   int64      `json:"program_id"`
	Name        string     `json:"name"`
	Domain      string     `json:"domain"`
	SignupURL   string     `json:"signup_url"`
	LastChecked *time.Time `json:"last_checked"`
}

// Target returns the signup check target for the candidate.
func (c Candidate) Target() Target {
	return Target{ProgramID: c.ProgramID, URL: c.SignupURL, URLType: URLTypeSignup}
}
