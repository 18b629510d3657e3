package prompts

import (
	"strings"
	"testing"

	"github.com/neetprep/neetprep/internal/model"
)

func TestGenerationPrompt(t *testing.T) {
	prompt := Generation("Physics", "Mechanics", 5, "medium")

	if !strings.Contains(prompt, "Generate 5 high-quality NEET Physics") {
		t.Error("prompt should name the count and subject")
	}
	if !strings.Contains(prompt, "focusing specifically on Mechanics") {
		t.Error("prompt should carry the topic filter")
	}
	if !strings.Contains(prompt, "electromagnetic induction") {
		t.Error("prompt should include physics key concepts")
	}
	if !strings.Contains(prompt, `"correct_answer": "A"`) {
		t.Error("prompt should show the expected JSON shape")
	}
	if !strings.Contains(prompt, `"topic": "Mechanics"`) {
		t.Error("prompt should label questions with the topic")
	}
}

func TestGenerationPromptWithoutTopic(t *testing.T) {
	prompt := Generation("Chemistry", "", 10, "hard")

	if strings.Contains(prompt, "focusing specifically on") {
		t.Error("subject-wide prompt should not carry a topic filter")
	}
	if !strings.Contains(prompt, `"topic": "General"`) {
		t.Error("subject-wide prompt should label questions General")
	}
	if !strings.Contains(prompt, "Difficulty Level: hard") {
		t.Error("prompt should state the difficulty")
	}
}

func TestGenerationPromptUnknownSubject(t *testing.T) {
	prompt := Generation("Astrology", "", 3, "easy")
	// Unknown subjects fall back to the biology guidelines.
	if !strings.Contains(prompt, "cell biology") {
		t.Error("unknown subject should use biology guidelines")
	}
}

func TestTemplateQuestions(t *testing.T) {
	questions := TemplateQuestions("Physics", 3, model.DifficultyHard)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Text == "" || !q.Options.Complete() {
			t.Errorf("question %d incomplete: %+v", i, q)
		}
		if !q.CorrectAnswer.Valid() {
			t.Errorf("question %d has invalid answer %q", i, q.CorrectAnswer)
		}
		if q.Difficulty != model.DifficultyHard {
			t.Errorf("question %d difficulty = %q, want hard", i, q.Difficulty)
		}
	}
}

func TestTemplateQuestionsUnknownSubject(t *testing.T) {
	questions := TemplateQuestions("Astronomy", 2, model.DifficultyEasy)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}
