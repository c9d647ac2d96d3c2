package seed

import (
	_ "embed"
	"fmt"
	"os"

	"examseed/internal/types"

	"gopkg.in/yaml.v3"
)

//go:embed exams.yaml
var defaultExams []byte

type examFile struct {
	Exams []types.Exam `yaml:"exams"`
}

// LoadExams reads an exam catalogue. An empty path returns the built-in catalogue.
func LoadExams(path string) ([]types.Exam, error) {
	data := defaultExams
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read exam catalogue: %w", err)
		}
	}
	return parseExams(data)
}

func parseExams(data []byte) ([]types.Exam, error) {
	var f examFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse exam catalogue: %w", err)
	}
	for i, e := range f.Exams {
		if e.ExamName == "" || e.ExamCode == "" {
			return nil, fmt.Errorf("exam %d: exam_name and exam_code are required", i)
		}
	}
	return f.Exams, nil
}
