package commandhandlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DefaultInactiveAfter is the inactivity window when no cutoff is given.
const DefaultInactiveAfter = 14 * 24 * time.Hour

var errCutoffInFuture = errors.New("cutoff must be in the past")

// CutoffParser turns the inactive-list "since" option into a cutoff time.
// It accepts a bare number of days or natural language such as
// "2 weeks ago" or "last monday".
type CutoffParser struct {
	w        *when.Parser
	fallback time.Duration
}

// NewCutoffParser creates a parser; inactiveAfter applies to empty input.
func NewCutoffParser(inactiveAfter time.Duration) *CutoffParser {
	if inactiveAfter <= 0 {
		inactiveAfter = DefaultInactiveAfter
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &CutoffParser{w: w, fallback: inactiveAfter}
}

// Parse resolves input relative to now.
func (p *CutoffParser) Parse(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return now.Add(-p.fallback), nil
	}
	if days, err := strconv.Atoi(input); err == nil {
		if days < 0 {
			return time.Time{}, errCutoffInFuture
		}
		return now.AddDate(0, 0, -days), nil
	}

	r, err := p.w.Parse(input, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize %q as a date", input)
	}
	if r.Time.After(now) {
		return time.Time{}, errCutoffInFuture
	}
	return r.Time, nil
}
