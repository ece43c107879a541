package question

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RenderedChoice is one visible option: the label the user answers with and
// the display text it maps to.
type RenderedChoice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Rendered is a question as one specific user sees it: variables substituted,
// distractors sampled, choices shuffled and relabeled. The correct rendered
// labels are kept server-side only.
type Rendered struct {
	Title   string           `json:"title"`
	Text    string           `json:"text"`
	Choices []RenderedChoice `json:"choices,omitempty"`

	correct []string
}

// CorrectLabels returns the rendered labels of the canonical answer, sorted.
func (r Rendered) CorrectLabels() []string {
	out := make([]string, len(r.correct))
	copy(out, r.correct)
	return out
}

// Renderer derives per-(user, question) views deterministically. The seed is
// an HMAC over both IDs, so the same user always sees the same sampling and
// label assignment and a submitted label maps back to the text that was shown,
// with no session state held anywhere.
type Renderer struct {
	secret []byte
}

func NewRenderer(secret []byte) *Renderer {
	return &Renderer{secret: secret}
}

func (r *Renderer) seed(userID, questionID uuid.UUID) int64 {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write(userID[:])
	mac.Write([]byte(":"))
	mac.Write(questionID[:])
	sum := mac.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Render produces the user-specific view of a question. Anonymous users pass
// uuid.Nil and all share one view. If the distractor pool is smaller than
// VisibleDistractors, every distractor is shown; never an error.
func (r *Renderer) Render(q Question, userID uuid.UUID) Rendered {
	rng := rand.New(rand.NewSource(r.seed(userID, q.ID)))

	vars := map[string]string{}
	if len(q.Variables) > 0 {
		vars = q.Variables[rng.Intn(len(q.Variables))]
	}

	out := Rendered{
		Title: substitute(q.Title, vars),
		Text:  substitute(q.Text, vars),
	}

	if !q.HasChoices() || q.Choice == nil {
		return out
	}

	answers := append([]string(nil), q.Choice.AnswerLabels...)
	sort.Strings(answers)

	// Map iteration order is random; sort before shuffling so the rng drives
	// the only randomness.
	distractors := q.Choice.DistractorLabels()
	sort.Strings(distractors)
	rng.Shuffle(len(distractors), func(i, j int) {
		distractors[i], distractors[j] = distractors[j], distractors[i]
	})
	visible := q.Choice.VisibleDistractors
	if visible > len(distractors) {
		visible = len(distractors)
	}

	shown := append(append([]string(nil), answers...), distractors[:visible]...)
	rng.Shuffle(len(shown), func(i, j int) {
		shown[i], shown[j] = shown[j], shown[i]
	})

	answerSet := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answerSet[a] = struct{}{}
	}

	out.Choices = make([]RenderedChoice, 0, len(shown))
	for i, internal := range shown {
		rendered := displayLabel(i)
		out.Choices = append(out.Choices, RenderedChoice{
			Label: rendered,
			Text:  substitute(q.Choice.Choices[internal], vars),
		})
		if _, ok := answerSet[internal]; ok {
			out.correct = append(out.correct, rendered)
		}
	}
	sort.Strings(out.correct)
	return out
}

// displayLabel yields a, b, ..., z, aa, ab, ... for choice positions.
func displayLabel(i int) string {
	label := ""
	for {
		label = string(rune('a'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			return label
		}
	}
}

func substitute(text string, vars map[string]string) string {
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text
}
