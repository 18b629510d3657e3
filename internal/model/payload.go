package model

import (
	"fmt"
	"strings"
)

// RawQuestionPayload is the wire shape of a question as callers and generators
// send it. Two option shapes occur in the wild: a nested "options" map keyed
// A-D, and flat option_a..option_d fields. Normalize is the single place both
// shapes collapse into the canonical Options struct; nothing downstream
// branches on shape again.
type RawQuestionPayload struct {
	ID            string            `json:"id"`
	Text          string            `json:"question_text"`
	Options       map[string]string `json:"options,omitempty"`
	OptionA       string            `json:"option_a,omitempty"`
	OptionB       string            `json:"option_b,omitempty"`
	OptionC       string            `json:"option_c,omitempty"`
	OptionD       string            `json:"option_d,omitempty"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	Difficulty    string            `json:"difficulty,omitempty"`
	Topic         string            `json:"topic,omitempty"`
}

// NormalizeOptions yields the canonical A-D option mapping, preferring the
// nested options map when present.
func (p RawQuestionPayload) NormalizeOptions() Options {
	if len(p.Options) > 0 {
		return Options{
			A: p.Options["A"],
			B: p.Options["B"],
			C: p.Options["C"],
			D: p.Options["D"],
		}
	}
	return Options{A: p.OptionA, B: p.OptionB, C: p.OptionC, D: p.OptionD}
}

// Normalize converts the payload into an EphemeralQuestion. It fails when a
// required field is missing or the correct-answer letter is not one of A-D.
func (p RawQuestionPayload) Normalize() (EphemeralQuestion, error) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return EphemeralQuestion{}, fmt.Errorf("question %q: missing question_text", p.ID)
	}

	opts := p.NormalizeOptions()
	if !opts.Complete() {
		return EphemeralQuestion{}, fmt.Errorf("question %q: missing option data", p.ID)
	}

	letter := AnswerLetter(strings.ToUpper(strings.TrimSpace(p.CorrectAnswer)))
	if !letter.Valid() {
		return EphemeralQuestion{}, fmt.Errorf("question %q: invalid correct_answer %q", p.ID, p.CorrectAnswer)
	}

	difficulty := Difficulty(strings.ToLower(p.Difficulty))
	if !difficulty.Valid() {
		difficulty = DifficultyMedium
	}

	return EphemeralQuestion{
		ID:            EphemeralID(p.ID),
		Text:          text,
		Options:       opts,
		CorrectAnswer: letter,
		Explanation:   p.Explanation,
		Difficulty:    difficulty,
		Topic:         p.Topic,
	}, nil
}
