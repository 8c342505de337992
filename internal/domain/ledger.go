package domain

// AnswerLedger keeps the answers of one attempt in submission order with at most
// one entry per question. It is not safe for concurrent use; stores guard it.
type AnswerLedger struct {
	answers []Answer
	index   map[string]int
}

// NewAnswerLedger builds a ledger from persisted answers. Duplicate question ids
// collapse onto the last occurrence.
func NewAnswerLedger(answers []Answer) *AnswerLedger {
	l := &AnswerLedger{index: make(map[string]int, len(answers))}
	for _, a := range answers {
		l.Upsert(a)
	}
	return l
}

// Upsert records a, replacing any earlier answer to the same question in place.
// It reports whether an answer was replaced.
func (l *AnswerLedger) Upsert(a Answer) bool {
	if i, ok := l.index[a.QuestionID]; ok {
		l.answers[i] = a
		return true
	}
	l.index[a.QuestionID] = len(l.answers)
	l.answers = append(l.answers, a)
	return false
}

// Get returns the answer recorded for questionID.
func (l *AnswerLedger) Get(questionID string) (Answer, bool) {
	i, ok := l.index[questionID]
	if !ok {
		return Answer{}, false
	}
	return l.answers[i], true
}

func (l *AnswerLedger) Len() int { return len(l.answers) }

// PointsEarned sums pointsEarned over every recorded answer.
func (l *AnswerLedger) PointsEarned() int {
	total := 0
	for _, a := range l.answers {
		total += a.PointsEarned
	}
	return total
}

// Answers returns a copy of the recorded answers in submission order.
func (l *AnswerLedger) Answers() []Answer {
	out := make([]Answer, len(l.answers))
	copy(out, l.answers)
	return out
}
