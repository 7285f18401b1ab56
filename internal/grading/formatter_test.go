package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripTotalsRemovesSectionAndOverallTotals(t *testing.T) {
	report := `<h2>Mechanism</h2>
<p>Explained the mechanism with an example. (8/10 marks)</p>
<p><strong>Section 1 Total: 18/20</strong></p>
<h2>Edge cases</h2>
<p>NOT MENTIONED (0/5 marks)</p>
<p><strong>Section 2 Total: 5/20</strong></p>
<p><strong>Total Score: 23/100</strong></p>`

	stripped := StripTotals(report)

	require.NotContains(t, stripped, "Section 1 Total")
	require.NotContains(t, stripped, "Section 2 Total")
	require.NotContains(t, stripped, "Total Score")
	require.Contains(t, stripped, "(8/10 marks)")
	require.Contains(t, stripped, "NOT MENTIONED")
}

func TestStripTotalsHandlesUnwrappedAndCommaForms(t *testing.T) {
	report := "Feedback body.\nSection Totals: 20/20, 15/20, 10/20\nFinal Score: 45/100\nMore feedback."

	stripped := StripTotals(report)

	require.NotContains(t, stripped, "Section Totals")
	require.NotContains(t, stripped, "Final Score")
	require.Contains(t, stripped, "Feedback body.")
	require.Contains(t, stripped, "More feedback.")
}

func TestTeacherViewIsIdempotent(t *testing.T) {
	report := "<p>Good work. (5/5 marks)</p>\n<p><strong>Total Score: 90/100</strong></p>"

	once := TeacherView(report)
	twice := TeacherView(once)

	require.Equal(t, once, twice)
	require.NotContains(t, once, "Total Score")
}

func TestStudentRenderHighlightsMarksAndExcerpts(t *testing.T) {
	report := `<p>The student wrote "osmosis moves water across the membrane" which earns 4/5 marks.</p>
<p><strong>Total Score: 80/100</strong></p>`

	formatter := NewStudentFormatter()
	rendered := formatter.Render(report)

	require.Contains(t, rendered, "<mark>4/5 marks</mark>")
	require.Contains(t, rendered, `<em>&#34;osmosis moves water across the membrane&#34;</em>`)
	require.NotContains(t, rendered, "Total Score")
}

func TestStudentRenderIsIdempotent(t *testing.T) {
	report := `<p>Partial credit: 3/10 marks for a "vague mention" of the process.</p>`

	formatter := NewStudentFormatter()
	once := formatter.Render(report)
	twice := formatter.Render(once)

	require.Equal(t, once, twice)
	require.NotContains(t, twice, "<mark><mark>")
}

func TestStudentRenderSanitizesMarkup(t *testing.T) {
	report := `<p onclick="steal()">Fine answer.</p><script>alert(1)</script>`

	formatter := NewStudentFormatter()
	rendered := formatter.Render(report)

	require.NotContains(t, rendered, "script")
	require.NotContains(t, rendered, "onclick")
	require.Contains(t, rendered, "<p>Fine answer.</p>")
}
