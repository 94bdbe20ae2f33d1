package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hexaflow/engine/pkg/api"
)

type (
	// dateRules is a date-valid configuration compiled against a reference
	// instant. Each rule applies independently; violations accumulate.
	dateRules struct {
		cfg *api.DateValidConfig
		now time.Time
	}

	dateResult struct {
		value      string
		valid      bool
		violations []string
	}
)

// dateLayouts are tried in order when no explicit format is configured
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
}

func handleDateValid(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.DateValidConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	values := collectDateValues(cfg, req.Context)
	rules := &dateRules{cfg: cfg, now: req.Env.Clock()}

	var results []dateResult
	for _, value := range values {
		if value == "" {
			if cfg.Required {
				results = append(results, dateResult{
					value:      value,
					violations: []string{"value required"},
				})
			}
			continue
		}
		results = append(results, rules.check(value))
	}

	if len(results) == 0 {
		// nothing to validate; only a required rule can fail an empty set
		return api.NewOutcome().WithBranch(!cfg.Required).
			WithPatch("dateValidation", validationDetail(nil))
	}

	allValid := true
	for _, r := range results {
		if !r.valid {
			allValid = false
			break
		}
	}
	return api.NewOutcome().WithBranch(allValid).
		WithPatch("dateValidation", validationDetail(results))
}

func collectDateValues(cfg *api.DateValidConfig, ctx api.Context) []string {
	var values []string
	for _, field := range cfg.Fields {
		val, ok := Lookup(ctx, field)
		if !ok || val == nil {
			values = append(values, "")
			continue
		}
		values = append(values, fmt.Sprintf("%v", val))
	}
	return append(values, cfg.Values...)
}

func validationDetail(results []dateResult) map[string]any {
	anyValid := false
	allValid := true
	detail := make([]any, 0, len(results))
	for _, r := range results {
		if r.valid {
			anyValid = true
		} else {
			allValid = false
		}
		detail = append(detail, map[string]any{
			"value":      r.value,
			"valid":      r.valid,
			"violations": r.violations,
		})
	}
	return map[string]any{
		"allValid": allValid && len(results) > 0,
		"anyValid": anyValid,
		"results":  detail,
	}
}

func (r *dateRules) check(value string) dateResult {
	res := dateResult{value: value}

	t, err := r.parse(value)
	if err != nil {
		res.violations = append(res.violations, "unparsable date")
		return res
	}

	res.violations = append(res.violations, r.boundViolations(t)...)
	res.violations = append(res.violations, r.calendarViolations(t)...)
	res.violations = append(res.violations, r.ageViolations(t)...)
	res.valid = len(res.violations) == 0
	return res
}

func (r *dateRules) parse(value string) (time.Time, error) {
	if r.cfg.Format != "" {
		return time.Parse(r.cfg.Format, value)
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (r *dateRules) boundViolations(t time.Time) []string {
	var out []string
	if r.cfg.Min != "" {
		if min, err := r.parse(r.cfg.Min); err == nil && t.Before(min) {
			out = append(out, "before minimum date")
		}
	}
	if r.cfg.Max != "" {
		if max, err := r.parse(r.cfg.Max); err == nil && t.After(max) {
			out = append(out, "after maximum date")
		}
	}

	today := dateOnly(r.now)
	day := dateOnly(t)
	if r.cfg.FutureOnly && day.Before(today) {
		out = append(out, "date is in the past")
	}
	if r.cfg.PastOnly && day.After(today) {
		out = append(out, "date is in the future")
	}
	return out
}

func (r *dateRules) calendarViolations(t time.Time) []string {
	var out []string
	if r.cfg.BusinessDays && isWeekend(t) {
		out = append(out, "not a business day")
	}
	if r.cfg.NoLeapYear && t.Month() == time.February && t.Day() == 29 {
		out = append(out, "leap day excluded")
	}
	if len(r.cfg.AllowedWeekdays) > 0 &&
		!weekdayAllowed(t, r.cfg.AllowedWeekdays) {
		out = append(out, "weekday not allowed")
	}
	for _, excluded := range r.cfg.ExcludedDates {
		if ex, err := r.parse(excluded); err == nil &&
			dateOnly(ex).Equal(dateOnly(t)) {
			out = append(out, "date excluded")
			break
		}
	}
	return out
}

func (r *dateRules) ageViolations(t time.Time) []string {
	if r.cfg.MinAge == 0 && r.cfg.MaxAge == 0 {
		return nil
	}
	var out []string
	age := yearsBetween(t, r.now)
	if r.cfg.MinAge > 0 && age < r.cfg.MinAge {
		out = append(out, "below minimum age")
	}
	if r.cfg.MaxAge > 0 && age > r.cfg.MaxAge {
		out = append(out, "above maximum age")
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func weekdayAllowed(t time.Time, allowed []string) bool {
	name := strings.ToLower(t.Weekday().String())
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == name || (len(a) >= 3 && strings.HasPrefix(name, a)) {
			return true
		}
	}
	return false
}

func yearsBetween(born, now time.Time) int {
	years := now.Year() - born.Year()
	anniversary := born.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
