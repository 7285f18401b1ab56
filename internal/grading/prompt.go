package grading

import (
	"fmt"
	"strings"
)

// RegradeContext carries the reviewing teacher's objection and the attempt it
// applies to. When present, the evaluator is instructed to revise its previous
// judgement instead of grading from scratch.
type RegradeContext struct {
	TeacherFeedback  string
	PreviousScore    int
	PreviousFeedback string
}

// PromptInput is everything needed to assemble one grading instruction block.
type PromptInput struct {
	MarkingScheme string
	StudentAnswer string
	MaxMarks      int
	Regrade       *RegradeContext
}

// BuildGradingPrompt assembles the examiner instruction block sent to the
// evaluator. The output-structure rules here are what MarkupReportParser and
// the formatters rely on; change them together.
func BuildGradingPrompt(in PromptInput) string {
	maxMarks := in.MaxMarks
	if maxMarks <= 0 {
		maxMarks = 100
	}

	var b strings.Builder
	b.WriteString("You are a strict examiner grading a student submission against a detailed marking scheme.\n\n")
	b.WriteString("MARKING SCHEME:\n")
	b.WriteString(in.MarkingScheme)
	b.WriteString("\n\nGRADING INSTRUCTIONS:\n")
	b.WriteString("1. List down each point in the marking scheme. For each point:\n")
	b.WriteString("   - If the student mentioned it, show the EXACT excerpt (full sentence) from the student answer\n")
	b.WriteString("   - If NOT mentioned, explicitly state \"NOT MENTIONED\"\n")
	b.WriteString("   - Evaluate the correctness AND completeness of the answer\n")
	b.WriteString("   - Assign marks based on depth of understanding:\n")
	b.WriteString("     * Full marks (100%): Clear explanation with mechanism/details/examples\n")
	b.WriteString("     * Good marks (70-80%): Correct but missing some details\n")
	b.WriteString("     * Partial marks (40-60%): Mentioned but superficial or lacks key elements\n")
	b.WriteString("     * Minimal marks (10-30%): Vague mention without proper explanation\n")
	b.WriteString("     * Zero marks: Not mentioned or completely incorrect\n")
	b.WriteString("   - Be strict with partial marks - students must demonstrate understanding, not just mention terms\n")
	fmt.Fprintf(&b, "2. Calculate marks for each section and the total score out of %d\n", maxMarks)
	b.WriteString("3. Format your response as structured HTML with:\n")
	b.WriteString("   - Bullet points for each marking scheme point\n")
	b.WriteString("   - Clear section headings\n")
	b.WriteString("   - Highlighted excerpts from student answers\n")
	b.WriteString("   - Justification for marks awarded (explain why full vs partial)\n")
	b.WriteString("   - Section totals and final score\n")
	b.WriteString("4. Be rigorous and accurate in assessment\n")
	b.WriteString("5. Do NOT include preambles like \"Here is the analysis\" - start directly with the evaluation\n")
	b.WriteString("6. Do NOT format as tables - use bullet points\n")
	b.WriteString("7. Do NOT include triple backticks or html identifiers\n\n")
	b.WriteString("STUDENT ANSWER:\n")
	b.WriteString(in.StudentAnswer)

	if in.Regrade != nil {
		b.WriteString("\n\nIMPORTANT - TEACHER FEEDBACK ON PREVIOUS GRADING:\n")
		b.WriteString("The teacher reviewed the previous grading and provided this feedback:\n")
		fmt.Fprintf(&b, "%q\n\n", in.Regrade.TeacherFeedback)
		fmt.Fprintf(&b, "Previous attempt score: %d/%d\n\n", in.Regrade.PreviousScore, maxMarks)
		if in.Regrade.PreviousFeedback != "" {
			b.WriteString("Previous grading report:\n")
			b.WriteString(in.Regrade.PreviousFeedback)
			b.WriteString("\n\n")
		}
		b.WriteString("Please re-grade taking the teacher's specific feedback into account. ")
		b.WriteString("Adjust your assessment based on their guidance rather than regenerating from scratch.")
	}

	b.WriteString("\n\nBegin the grading report now:")

	return b.String()
}
