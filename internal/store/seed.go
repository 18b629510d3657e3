package store

import (
	"log/slog"

	"github.com/neetprep/neetprep/internal/model"
)

type seedSubject struct {
	name        string
	description string
	topics      []string
}

var neetDefaults = []seedSubject{
	{
		name:        "Physics",
		description: "NEET Physics: mechanics, thermodynamics, electromagnetism, optics and modern physics",
		topics: []string{
			"Mechanics", "Thermodynamics", "Electromagnetism",
			"Optics", "Modern Physics", "Waves and Oscillations",
		},
	},
	{
		name:        "Chemistry",
		description: "NEET Chemistry: organic, inorganic and physical chemistry",
		topics: []string{
			"Organic Chemistry", "Inorganic Chemistry", "Physical Chemistry",
			"Coordination Compounds", "Biomolecules",
		},
	},
	{
		name:        "Biology",
		description: "NEET Biology: botany and zoology across the full syllabus",
		topics: []string{
			"Cell Biology", "Genetics", "Ecology", "Human Physiology",
			"Plant Physiology", "Biotechnology", "Evolution",
		},
	},
}

// EnsureDefaultSubjects seeds the three NEET subjects and their standard
// topics when the subjects table is empty. Safe to call repeatedly.
func (s *Store) EnsureDefaultSubjects() error {
	count, err := s.SubjectCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, seed := range neetDefaults {
		subjectID, err := s.CreateSubject(model.Subject{
			Name:        seed.name,
			Description: seed.description,
			IsActive:    true,
		})
		if err != nil {
			return err
		}
		for _, topic := range seed.topics {
			if _, err := s.CreateTopic(model.Topic{
				SubjectID: subjectID,
				Name:      topic,
				IsActive:  true,
			}); err != nil {
				return err
			}
		}
		slog.Info("seeded subject", "name", seed.name, "topics", len(seed.topics))
	}
	return nil
}
