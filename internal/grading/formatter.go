package grading

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Fragments removed before a report is shown to either audience. Reviewers
// should judge against the rubric's per-point marks, not the model's
// aggregates, and students receive the authoritative score separately.
var totalStripPatterns = []*regexp.Regexp{
	// "Section Totals: 20/20, 15/20, 10/20" comma-separated form
	regexp.MustCompile(`(?i)section\s+totals?:\s*[\d/,\s]+`),

	// "Section N Total: a/b" in its wrapped and bare forms
	regexp.MustCompile(`(?i)<p>\s*<strong>\s*section\s+\d*\s*total:\s*\d+/\d+\s*</strong>\s*</p>`),
	regexp.MustCompile(`(?i)<strong>\s*section\s+\d*\s*total:\s*\d+/\d+\s*</strong>`),
	regexp.MustCompile(`(?i)<div[^>]*>\s*📊\s*section\s+total:\s*\d+/\d+\s*</div>`),
	regexp.MustCompile(`(?i)<div[^>]*>\s*section\s+\d*\s*total:\s*\d+/\d+\s*</div>`),
	regexp.MustCompile(`(?i)section\s+\d*\s*total:\s*\d+/\d+`),
	regexp.MustCompile(`(?i)section\s+total:\s*\d+/\d+`),

	// "Total Score: n/100" and "Final Score: n/100" in the same forms
	regexp.MustCompile(`(?i)<p>\s*<strong>\s*(?:total|final)\s+score:\s*\d+/\d+\s*</strong>\s*</p>`),
	regexp.MustCompile(`(?i)<strong>\s*(?:total|final)\s+score:\s*\d+/\d+\s*</strong>`),
	regexp.MustCompile(`(?i)<div[^>]*>\s*(?:total|final)\s+score:\s*\d+/\d+\s*</div>`),
	regexp.MustCompile(`(?i)(?:total|final|overall)\s+score:\s*\d+/\d+`),
}

var (
	marksHighlightPattern = regexp.MustCompile(`(?i)(?:<mark>)?(\d+\s*/\s*\d+\s*marks?)(?:</mark>)?`)
	excerptPattern        = regexp.MustCompile(`(?:<em>)?"([^"<>]{2,})"(?:</em>)?`)
	blankLinePattern      = regexp.MustCompile(`\n{3,}`)
)

// StripTotals removes every section-subtotal and overall-total fragment from
// the report while keeping per-point awarded marks. Idempotent: once the
// fragments are gone there is nothing left for the patterns to match.
func StripTotals(report string) string {
	for _, pattern := range totalStripPatterns {
		report = pattern.ReplaceAllString(report, "")
	}
	return blankLinePattern.ReplaceAllString(report, "\n\n")
}

// TeacherView prepares a report for teacher review: totals stripped, body
// otherwise untouched.
func TeacherView(report string) string {
	return strings.TrimSpace(StripTotals(report))
}

// StudentFormatter restyles a report for release to a student. The final
// score is never part of the body; callers display it from the stored final
// grade.
type StudentFormatter struct {
	policy *bluemonday.Policy
}

// NewStudentFormatter constructs the formatter with a sanitization policy
// covering the structural markup the grading prompt requests.
func NewStudentFormatter() *StudentFormatter {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "ul", "ol", "li", "h2", "h3", "strong", "em", "mark", "blockquote")

	return &StudentFormatter{policy: policy}
}

// Render strips totals, highlights awarded-marks fragments, emphasises quoted
// student excerpts, and sanitizes the markup. Idempotent: restyle wrappers are
// matched optionally so reapplying does not nest them.
func (f *StudentFormatter) Render(report string) string {
	out := StripTotals(report)
	out = marksHighlightPattern.ReplaceAllString(out, "<mark>$1</mark>")
	out = excerptPattern.ReplaceAllString(out, `<em>"$1"</em>`)
	out = f.policy.Sanitize(out)
	return strings.TrimSpace(out)
}
