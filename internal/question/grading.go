package question

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Verdict is the grading outcome of a single submission.
type Verdict string

const (
	VerdictPending Verdict = "pending"
	VerdictCorrect Verdict = "correct"
	VerdictWrong   Verdict = "wrong"
)

// Result pairs a verdict with the checkbox partial-credit flag. Partial means
// a non-empty strict subset of the correct labels with nothing wrong selected;
// it never applies to multiple-choice or code questions.
type Result struct {
	Verdict Verdict
	Partial bool
}

// ErrEmptyAnswer rejects choice submissions that select nothing.
var ErrEmptyAnswer = errors.New("no answer selected")

// NormalizeLabels sorts and deduplicates submitted labels. Duplicate
// detection and grading both run on this canonical form, so reordered but
// identical checkbox answers compare equal.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// CanonicalPayload serializes normalized labels into the stored payload form.
func CanonicalPayload(labels []string) string {
	return strings.Join(NormalizeLabels(labels), ",")
}

// Grade judges submitted labels against the canonical answer for one user's
// rendered view. It is pure: the verdict is fully determined by the question,
// the user seed, and the submitted labels. Code questions are always pending;
// the evaluator writes their verdict back later.
func (r *Renderer) Grade(q Question, userID uuid.UUID, labels []string) (Result, error) {
	switch q.Kind {
	case KindCode:
		return Result{Verdict: VerdictPending}, nil
	case KindMultipleChoice, KindCheckbox:
	default:
		return Result{}, errors.New("unknown question kind " + string(q.Kind))
	}

	submitted := NormalizeLabels(labels)
	if len(submitted) == 0 {
		return Result{}, ErrEmptyAnswer
	}

	correct := r.Render(q, userID).CorrectLabels()

	if q.Kind == KindMultipleChoice {
		if len(submitted) == 1 && len(correct) == 1 && submitted[0] == correct[0] {
			return Result{Verdict: VerdictCorrect}, nil
		}
		return Result{Verdict: VerdictWrong}, nil
	}

	// Checkbox: exact set equality, order-independent.
	if equalLabels(submitted, correct) {
		return Result{Verdict: VerdictCorrect}, nil
	}
	return Result{Verdict: VerdictWrong, Partial: isSubset(submitted, correct)}, nil
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isSubset reports whether every element of sub is in super (both sorted).
// A full match is not a subset for partial-credit purposes.
func isSubset(sub, super []string) bool {
	if len(sub) >= len(super) {
		return false
	}
	set := make(map[string]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
