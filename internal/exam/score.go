package exam

// NEET marking scheme: +4 per correct answer, -1 per wrong answer, 0 for
// not attempted. Fixed, not configurable per call.
const (
	marksCorrect = 4
	marksWrong   = -1
)

// ScoreSummary holds the computed score for one submission.
type ScoreSummary struct {
	Correct      int
	Wrong        int
	NotAttempted int
	Total        int
	NeetScore    int
	MaxScore     int
	Percentage   float64
}

// Score applies the marking scheme. The percentage is clamped to a floor of
// zero: the NEET score can go negative, the percentage never does.
func Score(correct, wrong, notAttempted int) ScoreSummary {
	total := correct + wrong + notAttempted
	neet := correct*marksCorrect + wrong*marksWrong
	maxScore := total * marksCorrect

	var pct float64
	if maxScore > 0 {
		pct = float64(neet) / float64(maxScore) * 100
		if pct < 0 {
			pct = 0
		}
	}

	return ScoreSummary{
		Correct:      correct,
		Wrong:        wrong,
		NotAttempted: notAttempted,
		Total:        total,
		NeetScore:    neet,
		MaxScore:     maxScore,
		Percentage:   pct,
	}
}

// GradeFor returns the grade band for a score percentage. Inclusive lower
// bounds, highest matching band wins.
func GradeFor(pct float64) string {
	switch {
	case pct >= 90:
		return "Excellent"
	case pct >= 75:
		return "Good"
	case pct >= 60:
		return "Average"
	case pct >= 40:
		return "Below Average"
	default:
		return "Poor"
	}
}

// GradeMessage returns the descriptive message shown next to a grade.
func GradeMessage(grade string) string {
	switch grade {
	case "Excellent":
		return "Outstanding performance! You have excellent command over the subject."
	case "Good":
		return "Good job! You have a solid understanding of the concepts."
	case "Average":
		return "Average performance. Consider reviewing the topics you missed."
	case "Below Average":
		return "Below average score. Focus on strengthening your fundamentals."
	default:
		return "Poor performance. Significant improvement needed. Consider additional study."
	}
}
