package verification

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/JaimeStill/affwiki/pkg/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// signupExpr prefers the researched signup URL over the program row.
const signupExpr = "COALESCE(NULLIF(pr.extracted->>'signup_url', ''), p.signup_url)"

func insertRun(agentID string, t Target, r Result) sq.InsertBuilder {
	var chain []byte
	if len(r.RedirectChain) > 0 {
		chain, _ = json.Marshal(r.RedirectChain)
	}

	return psql.
		Insert("verification_runs").
		Columns(
			"program_id", "url", "url_type", "status", "http_status_code",
			"response_time_ms", "final_url", "redirect_chain", "error_message", "agent_key_id",
		).
		Values(
			t.ProgramID, r.URL, t.URLType, string(r.Status), nullInt(r.HTTPCode),
			nullInt(r.ResponseTimeMS), nullString(r.FinalURL), nullBytes(chain), nullString(r.Error), nullString(agentID),
		).
		Suffix("RETURNING id")
}

// brokenQuery selects programs whose most recent check is broken or timed
// out and is older than the minimum age.
func brokenQuery(q BrokenQuery) sq.SelectBuilder {
	latest := sq.
		Select("program_id", "url", "url_type", "status", "http_status_code", "checked_at").
		Options("DISTINCT ON (program_id)").
		From("verification_runs").
		OrderBy("program_id", "checked_at DESC", "id DESC")

	return psql.
		Select("v.program_id", "p.name", "p.domain", "v.url", "v.url_type", "v.status", "v.http_status_code", "v.checked_at").
		FromSelect(latest, "v").
		Join("programs p ON p.id = v.program_id").
		Where(sq.Eq{"v.status": []string{"broken", "timeout"}}).
		Where("v.checked_at < NOW() - make_interval(hours => ?::int)", q.MinAgeHours).
		OrderBy("v.checked_at DESC", "v.program_id").
		Limit(uint64(q.Limit))
}

func scanBroken(s repository.Scanner) (BrokenURL, error) {
	var b BrokenURL
	err := s.Scan(&b.ProgramID, &b.ProgramName, &b.Domain, &b.URL, &b.URLType, &b.Status, &b.HTTPCode, &b.CheckedAt)
	return b, err
}

// candidatesQuery selects programs with an http signup URL, never-checked
// and least recently checked first.
func candidatesQuery(limit int) sq.SelectBuilder {
	lastChecked := sq.
		Select("MAX(v.checked_at)").
		From("verification_runs v").
		Where("v.program_id = p.id AND v.url_type = 'signup'")

	return psql.
		Select("p.id", "p.name", "p.domain", signupExpr).
		Column(sq.Alias(lastChecked, "last_checked")).
		From("programs p").
		LeftJoin("program_research pr ON pr.program_id = p.id").
		Where(signupExpr + " LIKE 'http%'").
		OrderBy("last_checked ASC NULLS FIRST", "p.id").
		Limit(uint64(limit))
}

func scanCandidate(s repository.Scanner) (Candidate, error) {
	var c Candidate
	err := s.Scan(&c.ProgramID, &c.Name, &c.Domain, &c.SignupURL, &c.LastChecked)
	return c, err
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
