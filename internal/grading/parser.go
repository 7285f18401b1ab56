package grading

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

// SectionScore is one entry of a parsed report breakdown, in discovery order.
type SectionScore struct {
	Label   string `json:"label"`
	Score   int    `json:"score"`
	Max     int    `json:"max_score"`
	Comment string `json:"comment"`
}

// Result is the validated outcome of parsing an evaluator report. Feedback
// carries the report text, rewritten where needed so the displayed total never
// contradicts Score. A zero Score with an empty Breakdown means the parser
// found no usable numeric signal; callers should treat that as low confidence.
type Result struct {
	Score     int            `json:"score"`
	Feedback  string         `json:"feedback"`
	Breakdown []SectionScore `json:"breakdown"`
}

// LowConfidence reports whether the result carries no numeric signal at all.
func (r Result) LowConfidence() bool {
	return r.Score == 0 && len(r.Breakdown) == 0
}

// ReportParser extracts a score and section breakdown from an evaluator's
// free-text report. Implementations must be deterministic and must not fail
// on reports with no parseable numbers.
type ReportParser interface {
	Parse(report string, maxMarks int) Result
}

// Evaluators state section subtotals as independent numbers but are unreliable
// at summing them. With this many subtotals present, their sum is trusted over
// the report's own claimed total.
const minSectionsForSum = 3

var sectionTotalPattern = regexp.MustCompile(`(?i)section\s*\d*\s*totals?\s*[:\s]\s*(\d+)\s*/\s*(\d+)`)

// Overall-total label patterns, tried in priority order. %d is the maximum.
var totalPatternTemplates = []string{
	`(?i)total\s*score\s*[:\s]\s*(\d+)\s*/\s*%d`,
	`(?i)final\s*score\s*[:\s]\s*(\d+)\s*/\s*%d`,
	`(?i)overall\s*score\s*[:\s]\s*(\d+)\s*/\s*%d`,
	`(?i)total\s*[:\s]\s*(\d+)\s*/\s*%d`,
	`(?i)score\s*[:\s]\s*(\d+)\s*/\s*%d`,
	`(?i)total\s*[:\s]\s*(\d+)\s*marks`,
	`(?i)(\d+)\s*/\s*%d\s*marks`,
}

const totalFallbackTemplate = `(\d+)\s*/\s*%d`

// Rewrite patterns parallel the overall-total patterns: any label form the
// extractor accepts must also be rewritable, or a reconciled score would ship
// next to a contradicting stated total. Group 1 captures a leading section
// label so subtotal fragments are left alone.
var totalRewriteTemplates = []string{
	`(?i)(section\s*\d*\s*)?((?:total|final|overall)\s*score\s*[:\s]\s*)(\d+)(\s*/\s*%d)`,
	`(?i)(section\s*\d*\s*)?(totals?\s*[:\s]\s*)(\d+)(\s*/\s*%d)`,
	`(?i)(section\s*\d*\s*)?(scores?\s*[:\s]\s*)(\d+)(\s*/\s*%d)`,
	`(?i)(section\s*\d*\s*)?(totals?\s*[:\s]\s*)(\d+)(\s*marks)`,
	`(?i)(section\s*\d*\s*totals?\s*[:\s]\s*)?()(\d+)(\s*/\s*%d\s*marks)`,
}

const bareRewriteTemplate = `(?i)(section\s*\d*\s*totals?\s*[:\s]\s*)?()(\d+)(\s*/\s*%d)`

// MarkupReportParser is the default ReportParser. It understands the loosely
// structured HTML reports produced by the grading prompt: per-section
// "Section N Total: a/b" fragments and a labeled overall total.
type MarkupReportParser struct {
	mu          sync.Mutex
	totals      map[int][]*regexp.Regexp
	fallback    map[int]*regexp.Regexp
	rewrites    map[int][]*regexp.Regexp
	bareRewrite map[int]*regexp.Regexp
}

// NewMarkupReportParser constructs the parser.
func NewMarkupReportParser() *MarkupReportParser {
	return &MarkupReportParser{
		totals:      make(map[int][]*regexp.Regexp),
		fallback:    make(map[int]*regexp.Regexp),
		rewrites:    make(map[int][]*regexp.Regexp),
		bareRewrite: make(map[int]*regexp.Regexp),
	}
}

// Parse extracts the score and breakdown from the report. The returned score
// is always within [0, maxMarks]; values outside that range are treated as a
// parse failure and reset to zero.
func (p *MarkupReportParser) Parse(report string, maxMarks int) Result {
	if maxMarks <= 0 {
		maxMarks = 100
	}

	breakdown := p.extractSections(report)
	stated, statedFound := p.extractStatedTotal(report, maxMarks)

	var score int
	switch {
	case len(breakdown) >= minSectionsForSum:
		for _, section := range breakdown {
			score += section.Score
		}
	case statedFound:
		score = stated
	}

	if score < 0 || score > maxMarks {
		score = 0
	}

	feedback := report
	if len(breakdown) >= minSectionsForSum && statedFound && stated != score {
		feedback = p.rewriteStatedTotal(report, score, maxMarks)
	}

	return Result{Score: score, Feedback: feedback, Breakdown: breakdown}
}

func (p *MarkupReportParser) extractSections(report string) []SectionScore {
	matches := sectionTotalPattern.FindAllStringSubmatch(report, -1)
	if len(matches) == 0 {
		return nil
	}

	breakdown := make([]SectionScore, 0, len(matches))
	for i, match := range matches {
		awarded, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		max, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		breakdown = append(breakdown, SectionScore{
			Label:   fmt.Sprintf("Section %d", i+1),
			Score:   awarded,
			Max:     max,
			Comment: fmt.Sprintf("%d/%d marks", awarded, max),
		})
	}

	return breakdown
}

func (p *MarkupReportParser) extractStatedTotal(report string, maxMarks int) (int, bool) {
	for _, pattern := range p.totalPatterns(maxMarks) {
		if match := pattern.FindStringSubmatch(report); match != nil {
			if value, err := strconv.Atoi(match[1]); err == nil {
				return value, true
			}
		}
	}

	if match := p.fallbackPattern(maxMarks).FindStringSubmatch(report); match != nil {
		if value, err := strconv.Atoi(match[1]); err == nil {
			return value, true
		}
	}

	return 0, false
}

// rewriteStatedTotal replaces every labeled total fragment so the report shown
// downstream agrees with the computed score. When the stated total was only
// ever a bare n/max fragment, the first such fragment outside a section
// subtotal is rewritten instead.
func (p *MarkupReportParser) rewriteStatedTotal(report string, score, maxMarks int) string {
	rewritten := report
	changed := false
	for _, pattern := range p.rewritePatterns(maxMarks) {
		rewritten = pattern.ReplaceAllStringFunc(rewritten, func(match string) string {
			parts := pattern.FindStringSubmatch(match)
			if parts[1] != "" {
				return match
			}
			changed = true
			return fmt.Sprintf("%s%d%s", parts[2], score, parts[4])
		})
	}
	if changed {
		return rewritten
	}

	replaced := false
	bare := p.bareRewritePattern(maxMarks)
	return bare.ReplaceAllStringFunc(report, func(match string) string {
		parts := bare.FindStringSubmatch(match)
		if replaced || parts[1] != "" {
			return match
		}
		replaced = true
		return fmt.Sprintf("%d%s", score, parts[4])
	})
}

func (p *MarkupReportParser) totalPatterns(maxMarks int) []*regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.totals[maxMarks]; ok {
		return cached
	}

	patterns := make([]*regexp.Regexp, 0, len(totalPatternTemplates))
	for _, template := range totalPatternTemplates {
		patterns = append(patterns, compileForMax(template, maxMarks))
	}
	p.totals[maxMarks] = patterns
	return patterns
}

func (p *MarkupReportParser) fallbackPattern(maxMarks int) *regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.fallback[maxMarks]; ok {
		return cached
	}

	pattern := compileForMax(totalFallbackTemplate, maxMarks)
	p.fallback[maxMarks] = pattern
	return pattern
}

func (p *MarkupReportParser) rewritePatterns(maxMarks int) []*regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.rewrites[maxMarks]; ok {
		return cached
	}

	patterns := make([]*regexp.Regexp, 0, len(totalRewriteTemplates))
	for _, template := range totalRewriteTemplates {
		patterns = append(patterns, compileForMax(template, maxMarks))
	}
	p.rewrites[maxMarks] = patterns
	return patterns
}

func (p *MarkupReportParser) bareRewritePattern(maxMarks int) *regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.bareRewrite[maxMarks]; ok {
		return cached
	}

	pattern := compileForMax(bareRewriteTemplate, maxMarks)
	p.bareRewrite[maxMarks] = pattern
	return pattern
}

func compileForMax(template string, maxMarks int) *regexp.Regexp {
	if !containsVerb(template) {
		return regexp.MustCompile(template)
	}
	return regexp.MustCompile(fmt.Sprintf(template, maxMarks))
}

func containsVerb(template string) bool {
	for i := 0; i+1 < len(template); i++ {
		if template[i] == '%' && template[i+1] == 'd' {
			return true
		}
	}
	return false
}
