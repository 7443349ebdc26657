package quickvotes

import (
	"math"
	"math/rand"
	"strings"
)

// Excludes characters easily confused when read aloud (0, O, 1, I).
const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateAccessCode returns a random code of the given length drawn
// from the access-code alphabet.
func GenerateAccessCode(length int, r *rand.Rand) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(accessCodeAlphabet[r.Intn(len(accessCodeAlphabet))])
	}
	return b.String()
}

// ScoreQuiz grades answers against questions and returns the number of
// correct answers plus the percentage score (correct/total * 100).
// Each question counts at most once: when the same index appears more
// than once the last answer wins. Answers referencing unknown questions
// or options score nothing for that question; missing answers are not
// penalized beyond the zero.
func ScoreQuiz(questions []Question, answers []QuizAnswer) (correct int, score float64) {
	if len(questions) == 0 {
		return 0, 0
	}
	picked := make(map[int]int, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) {
			continue
		}
		picked[a.QuestionIndex] = a.SelectedOption
	}
	for idx, sel := range picked {
		if questions[idx].CorrectAnswer == sel {
			correct++
		}
	}
	return correct, float64(correct) / float64(len(questions)) * 100
}

// OptionTally is one row of a vote result.
type OptionTally struct {
	Option  string  `json:"option"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TallyVotes recomputes the vote counts from scratch: every selected
// option that still exists in the current option list increments its
// counter; options removed after votes were cast are silently dropped.
// A participant's selection is treated as a set, so a repeated option
// counts once. Percentages are of total votes counted, not total
// participants; these differ under multiple choice.
func TallyVotes(options []string, selections [][]string) (tallies []OptionTally, total int) {
	counts := make(map[string]int, len(options))
	for _, opt := range options {
		counts[opt] = 0
	}
	for _, sel := range selections {
		seen := make(map[string]struct{}, len(sel))
		for _, opt := range sel {
			if _, dup := seen[opt]; dup {
				continue
			}
			seen[opt] = struct{}{}
			if _, ok := counts[opt]; ok {
				counts[opt]++
				total++
			}
		}
	}
	tallies = make([]OptionTally, len(options))
	for i, opt := range options {
		t := OptionTally{Option: opt, Count: counts[opt]}
		if total > 0 {
			t.Percent = float64(t.Count) / float64(total) * 100
		}
		tallies[i] = t
	}
	return tallies, total
}

// Entrant is a raffle participant eligible for a draw.
type Entrant struct {
	UserID string
	Name   string
	Avatar string
}

// DrawRaffle shuffles the entrant pool and walks the prize list in
// order, allocating the next quantity entrants to each prize. A running
// offset carries across prizes so no entrant wins twice; a prize whose
// turn finds the pool exhausted is skipped. Each call produces a full
// replacement winner list — repeated draws overwrite, never accumulate.
func DrawRaffle(prizes []Prize, entrants []Entrant, r *rand.Rand) []RaffleWinner {
	pool := make([]Entrant, len(entrants))
	copy(pool, entrants)
	r.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	var winners []RaffleWinner
	offset := 0
	for _, prize := range prizes {
		available := min(prize.Quantity, len(pool)-offset)
		if available <= 0 {
			continue
		}
		for _, e := range pool[offset : offset+available] {
			name := e.Name
			if name == "" {
				name = "Anónimo"
			}
			winners = append(winners, RaffleWinner{
				Prize:  prize.Name,
				User:   name,
				Avatar: e.Avatar,
				UserID: e.UserID,
			})
		}
		offset += available
	}
	return winners
}

// SpinOutcome describes one wheel spin. The winner is exactly
// determined by the final rotation angle — the spin parameters are the
// randomness source, and a client replaying the eased animation with
// the same rotations and duration lands on the same segment.
type SpinOutcome struct {
	Rotations    float64 `json:"rotations"`
	DurationMS   int     `json:"durationMs"`
	FinalAngle   float64 `json:"finalAngle"`
	WinningIndex int     `json:"winningIndex"`
}

// Spin draws 5–8 full rotations over 3–5 seconds and resolves the
// winning segment from the final angle modulo the segment count.
func Spin(segmentCount int, r *rand.Rand) SpinOutcome {
	rotations := 5 + r.Float64()*3
	duration := 3000 + int(r.Float64()*2000)

	finalAngle := math.Mod(360*rotations, 360)
	segmentAngle := 360 / float64(segmentCount)
	winning := int((360-finalAngle)/segmentAngle) % segmentCount

	return SpinOutcome{
		Rotations:    rotations,
		DurationMS:   duration,
		FinalAngle:   finalAngle,
		WinningIndex: winning,
	}
}
