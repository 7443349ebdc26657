package quickvotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Item content is a tagged union keyed by the parent activity's type.
// The variants below are validated at the data-access boundary instead
// of being trusted ad hoc at each call site.

// Placeholder prompt used when a legacy quiz row is missing its text.
const missingQuestionText = "Pregunta sin texto"

var ErrInvalidContent = errors.New("invalid content")

type QuizContent struct {
	Questions []Question `json:"questions"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

func (c QuizContent) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: quiz needs at least one question", ErrInvalidContent)
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidContent, i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least 2 options", ErrInvalidContent, i+1)
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d option %d has no text", ErrInvalidContent, i+1, j+1)
			}
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct answer out of range", ErrInvalidContent, i+1)
		}
	}
	return nil
}

type RaffleContent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Prizes       []Prize  `json:"prizes"`
	Participants []string `json:"participants"`
}

type Prize struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (c RaffleContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: raffle needs a title", ErrInvalidContent)
	}
	if len(c.Prizes) == 0 {
		return fmt.Errorf("%w: raffle needs at least one prize", ErrInvalidContent)
	}
	for i, p := range c.Prizes {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: prize %d has no name", ErrInvalidContent, i+1)
		}
		if p.Quantity < 1 {
			return fmt.Errorf("%w: prize %d quantity must be at least 1", ErrInvalidContent, i+1)
		}
	}
	return nil
}

type WheelType string

const (
	WheelPrizes       WheelType = "prizes"
	WheelParticipants WheelType = "participants"
)

type WheelContent struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	WheelType   WheelType      `json:"wheelType"`
	Segments    []WheelSegment `json:"segments"`
}

// WheelSegment is a free-text label in prizes mode and an {id, name}
// participant snapshot in participants mode. The original stored plain
// strings for prizes, so unmarshalling accepts both shapes.
type WheelSegment struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (s *WheelSegment) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Name)
	}
	type plain WheelSegment
	return json.Unmarshal(data, (*plain)(s))
}

func (s WheelSegment) MarshalJSON() ([]byte, error) {
	if s.ID == "" {
		return json.Marshal(s.Name)
	}
	type plain WheelSegment
	return json.Marshal(plain(s))
}

func (c WheelContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: wheel needs a title", ErrInvalidContent)
	}
	switch c.WheelType {
	case WheelPrizes:
		if len(c.Segments) < 2 {
			return fmt.Errorf("%w: wheel needs at least 2 segments", ErrInvalidContent)
		}
		for i, s := range c.Segments {
			if strings.TrimSpace(s.Name) == "" {
				return fmt.Errorf("%w: segment %d has no text", ErrInvalidContent, i+1)
			}
		}
	case WheelParticipants:
		// Segments are a snapshot of current participations and may be
		// empty until someone joins; the player refreshes on demand.
	default:
		return fmt.Errorf("%w: unknown wheel type %q", ErrInvalidContent, c.WheelType)
	}
	return nil
}

type VoteContent struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Options          []string `json:"options"`
	IsMultipleChoice bool     `json:"isMultipleChoice"`
}

func (c VoteContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: vote needs a title", ErrInvalidContent)
	}
	if len(c.Options) < 2 {
		return fmt.Errorf("%w: vote needs at least 2 options", ErrInvalidContent)
	}
	for i, opt := range c.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d has no text", ErrInvalidContent, i+1)
		}
	}
	return nil
}

// ValidateContent decodes raw as the content variant for t and runs the
// variant's validation. Unknown fields are rejected so a payload saved
// under the wrong type fails loudly instead of round-tripping as junk.
func ValidateContent(t ActivityType, raw []byte) error {
	var v interface{ Validate() error }
	switch t {
	case TypeQuiz:
		v = &QuizContent{}
	case TypeRaffle:
		v = &RaffleContent{}
	case TypeWheel:
		v = &WheelContent{}
	case TypeVote:
		v = &VoteContent{}
	default:
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalidContent, t)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return v.Validate()
}

// legacyQuizItem is the older one-row-per-question schema.
type legacyQuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// NormalizeQuiz coalesces stored item contents into one canonical
// question list. The first content carrying a questions array wins;
// otherwise each row is read as a legacy single-question item with
// missing fields defaulted. This is the only place the legacy format
// is understood — consumers never sniff it themselves.
func NormalizeQuiz(contents [][]byte) []Question {
	for _, raw := range contents {
		var c QuizContent
		if err := json.Unmarshal(raw, &c); err == nil && c.Questions != nil {
			out := make([]Question, len(c.Questions))
			for i, q := range c.Questions {
				out[i] = defaultQuestion(q.Question, q.Options, q.CorrectAnswer)
			}
			return out
		}
	}

	var out []Question
	for _, raw := range contents {
		var item legacyQuizItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, defaultQuestion(item.Question, item.Options, item.CorrectAnswer))
	}
	return out
}

func defaultQuestion(text string, options []string, correct int) Question {
	if text == "" {
		text = missingQuestionText
	}
	if options == nil {
		options = []string{}
	}
	if correct < 0 {
		correct = 0
	}
	return Question{Question: text, Options: options, CorrectAnswer: correct}
}
