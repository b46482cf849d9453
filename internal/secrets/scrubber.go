package secrets

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
	"go.uber.org/zap"
)

// Finding is a detected secret. The secret value itself is never exposed.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`

	secret string
}

// Result is the outcome of scrubbing one document.
type Result struct {
	Content  string
	Findings []Finding
}

// Redacted reports whether anything was replaced.
func (r Result) Redacted() bool { return len(r.Findings) > 0 }

// RuleCounts returns findings per rule.
func (r Result) RuleCounts() map[string]int {
	counts := make(map[string]int, len(r.Findings))
	for _, f := range r.Findings {
		counts[f.RuleID]++
	}
	return counts
}

// Scrubber redacts secrets with the gitleaks default rules.
type Scrubber struct {
	detector *detect.Detector
	paths    []*regexp.Regexp
}

// New builds a scrubber. Building the detector compiles several hundred
// rules, so one Scrubber should serve a whole index run.
func New(allow *Allowlist) (*Scrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}

	s := &Scrubber{detector: detector}
	if allow == nil {
		return s, nil
	}

	global := &gitleaksconfig.Allowlist{Description: "repolens allowlist"}
	for _, p := range allow.Paths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
		s.paths = append(s.paths, re)
	}
	for _, p := range allow.Regexes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	global.StopWords = append(global.StopWords, allow.Regexes...)
	if len(global.Regexes) > 0 {
		detector.Config.Allowlists = append(detector.Config.Allowlists, global)
	}
	return s, nil
}

// PathAllowed reports whether path matches an allowlisted path pattern.
func (s *Scrubber) PathAllowed(path string) bool {
	for _, re := range s.paths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Scrub replaces every detected secret in content with a marker.
func (s *Scrubber) Scrub(content string) Result {
	found := s.detector.DetectString(content)
	if len(found) == 0 {
		return Result{Content: content}
	}

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" {
			continue
		}
		findings = append(findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
			secret:      secret,
		})
	}

	return Result{Content: replaceFindings(content, findings), Findings: findings}
}

// replaceFindings substitutes longest secrets first so a secret that
// contains another is replaced whole.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].secret) > len(sorted[j].secret) })

	for _, f := range sorted {
		content = strings.ReplaceAll(content, f.secret, Marker(f.RuleID))
	}
	return content
}

// Marker is the replacement text for a secret found by rule.
func Marker(rule string) string {
	return "[REDACTED:" + rule + "]"
}

// Transform returns a walker transform that scrubs each document's content.
// Documents whose path is allowlisted pass through unchanged.
func (s *Scrubber) Transform(ctx context.Context, logger *logging.Logger) func(walker.Document) walker.Document {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(d walker.Document) walker.Document {
		if s.PathAllowed(d.Metadata.Path) {
			return d
		}
		res := s.Scrub(d.Content)
		if res.Redacted() {
			logger.Info(ctx, "redacted secrets",
				zap.String("path", d.Metadata.Path),
				zap.Any("rules", res.RuleCounts()),
			)
			d.Content = res.Content
		}
		return d
	}
}
