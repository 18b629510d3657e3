// Package prompts holds the question-generation prompt and the static
// template bank used when fallback is enabled at the adapter boundary.
package prompts

import (
	"fmt"
	"strings"

	"github.com/neetprep/neetprep/internal/model"
)

// GenerationSystem is the system prompt for question generation.
const GenerationSystem = "You are an expert NEET exam question writer. " +
	"Generate high-quality multiple choice questions with exactly 4 options each. " +
	"Respond only with the requested JSON object."

type guidelines struct {
	focusAreas    string
	questionTypes string
	keyConcepts   string
}

var subjectGuidelines = map[string]guidelines{
	"Physics": {
		focusAreas:    "mechanics, thermodynamics, electromagnetism, optics, modern physics, waves, oscillations",
		questionTypes: "numerical problems, conceptual questions, application-based scenarios",
		keyConcepts:   "laws of motion, energy conservation, electromagnetic induction, wave properties, atomic structure",
	},
	"Chemistry": {
		focusAreas:    "organic chemistry, inorganic chemistry, physical chemistry, coordination compounds, biomolecules",
		questionTypes: "structure identification, reaction mechanisms, numerical calculations, periodic trends",
		keyConcepts:   "chemical bonding, thermodynamics, kinetics, equilibrium, organic reactions, periodic properties",
	},
	"Biology": {
		focusAreas:    "cell biology, genetics, ecology, human physiology, plant physiology, biotechnology, evolution",
		questionTypes: "diagram-based questions, physiological processes, genetic problems, ecological concepts",
		keyConcepts:   "cell structure, inheritance patterns, ecosystem dynamics, organ systems, molecular biology",
	},
}

// Generation builds the user prompt for a generation request.
func Generation(subject, topic string, count int, difficulty string) string {
	g, ok := subjectGuidelines[subject]
	if !ok {
		g = subjectGuidelines["Biology"]
	}

	topicFilter := ""
	topicLabel := "General"
	if topic != "" {
		topicFilter = " focusing specifically on " + topic
		topicLabel = topic
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d high-quality NEET %s multiple choice questions%s.\n\n", count, subject, topicFilter)
	sb.WriteString("NEET Exam Standards:\n")
	sb.WriteString("- Each question must test deep conceptual understanding\n")
	sb.WriteString("- Include application-based scenarios from real life\n")
	sb.WriteString("- Follow official NEET syllabus and pattern\n")
	sb.WriteString("- Avoid direct factual recall; focus on application and analysis\n\n")
	fmt.Fprintf(&sb, "Subject-Specific Guidelines for %s:\n", subject)
	fmt.Fprintf(&sb, "- Focus Areas: %s\n", g.focusAreas)
	fmt.Fprintf(&sb, "- Question Types: %s\n", g.questionTypes)
	fmt.Fprintf(&sb, "- Key Concepts: %s\n\n", g.keyConcepts)
	fmt.Fprintf(&sb, "Difficulty Level: %s\n", difficulty)
	sb.WriteString("- Easy: Basic concept application, direct formula usage, simple calculations\n")
	sb.WriteString("- Medium: Multi-step reasoning, concept integration, moderate calculations\n")
	sb.WriteString("- Hard: Complex analysis, multiple concept integration, advanced problem-solving\n\n")
	sb.WriteString("Question Quality Requirements:\n")
	sb.WriteString("1. Clear, unambiguous question stem\n")
	sb.WriteString("2. Four distinct, plausible options\n")
	sb.WriteString("3. Only one clearly correct answer\n")
	sb.WriteString("4. Detailed explanations with reasoning\n")
	sb.WriteString("5. Use standard scientific terminology and units where applicable\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this exact shape:\n")
	sb.WriteString(`{"questions": [{"question_text": "...", "option_a": "...", "option_b": "...", "option_c": "...", "option_d": "...", "correct_answer": "A", "explanation": "...", `)
	fmt.Fprintf(&sb, `"difficulty": "%s", "topic": "%s"}]}`, difficulty, topicLabel)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Generate exactly %d questions for %s%s. Ensure variety in question types and concepts covered.\n", count, subject, topicFilter)

	return sb.String()
}

var templateBank = map[string][]model.EphemeralQuestion{
	"Physics": {
		{
			Text:          "A particle moves in a straight line with constant acceleration. If it covers 20 m in the first 2 seconds and 60 m in the next 4 seconds, what is its acceleration?",
			Options:       model.Options{A: "5 m/s²", B: "10 m/s²", C: "15 m/s²", D: "20 m/s²"},
			CorrectAnswer: model.LetterA,
			Explanation:   "Using s = ut + ½at². For the first 2 s: 20 = 2u + 2a. For the total 6 s: 80 = 6u + 18a. Solving gives a = 5 m/s².",
			Topic:         "Kinematics",
		},
	},
	"Chemistry": {
		{
			Text:          "Which orbital has the highest energy according to the aufbau principle?",
			Options:       model.Options{A: "3d", B: "4s", C: "4p", D: "4f"},
			CorrectAnswer: model.LetterD,
			Explanation:   "Orbitals fill in order of increasing energy: 1s < 2s < 2p < 3s < 3p < 4s < 3d < 4p < 5s < 4d < 5p < 6s < 4f. Of the given options 4f is highest.",
			Topic:         "Atomic Structure",
		},
	},
	"Biology": {
		{
			Text:          "Which of the following is NOT a function of the rough endoplasmic reticulum?",
			Options:       model.Options{A: "Protein synthesis", B: "Lipid synthesis", C: "Protein folding", D: "Glycoprotein formation"},
			CorrectAnswer: model.LetterB,
			Explanation:   "Lipid synthesis is carried out by the smooth endoplasmic reticulum. The rough ER handles protein synthesis, folding and glycoprotein formation via its ribosomes.",
			Topic:         "Cell Biology",
		},
	},
}

// TemplateQuestions returns count questions from the static bank for a
// subject, cycling when the bank is smaller than count. Only used when the
// adapter's fallback flag is enabled.
func TemplateQuestions(subject string, count int, difficulty model.Difficulty) []model.EphemeralQuestion {
	bank, ok := templateBank[subject]
	if !ok {
		bank = templateBank["Biology"]
	}
	questions := make([]model.EphemeralQuestion, 0, count)
	for i := 0; i < count; i++ {
		eq := bank[i%len(bank)]
		eq.Difficulty = difficulty
		questions = append(questions, eq)
	}
	return questions
}
