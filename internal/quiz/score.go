package quiz

// Score reduces a completed answer set into a score pair.
//
// total is the sum of the recorded points across the supplied answers.
// Answers whose question has since been deactivated or deleted still
// count toward total. max reflects only the currently active question
// set: for each active question, the best choice's points (a question
// with no choices contributes 0).
func Score(answers []Answer, active []Question) (total, max int) {
	for _, a := range answers {
		total += a.Points
	}
	return total, MaxScore(active)
}

// MaxScore is the highest total achievable against the given question set.
func MaxScore(active []Question) int {
	sum := 0
	for _, q := range active {
		best := 0 // floors the contribution at 0: choice points are never negative here
		for _, c := range q.Choices {
			if c.Points > best {
				best = c.Points
			}
		}
		sum += best
	}
	return sum
}

// Percent is the result-page percentage, rounded to the nearest integer.
// A zero max yields 0 rather than dividing by zero.
func Percent(total, max int) int {
	if max <= 0 {
		return 0
	}
	return (total*100 + max/2) / max
}
