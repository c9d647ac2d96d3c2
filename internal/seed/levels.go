package seed

import (
	"fmt"
	"strings"
)

// Level is one stage of a run.
type Level string

const (
	LevelRegions      Level = "regions"
	LevelCentres      Level = "centres"
	LevelSchools      Level = "schools"
	LevelStudents     Level = "students"
	LevelExams        Level = "exams"
	LevelApplications Level = "applications"
	LevelResults      Level = "results"
)

// HierarchyLevels are the levels the seed command runs by default, parents first.
var HierarchyLevels = []Level{LevelRegions, LevelCentres, LevelSchools, LevelStudents, LevelExams}

var allLevels = append(append([]Level{}, HierarchyLevels...), LevelApplications, LevelResults)

// ParseLevels validates level names and returns them in canonical run order.
// No names yields HierarchyLevels.
func ParseLevels(names []string) ([]Level, error) {
	if len(names) == 0 {
		return append([]Level{}, HierarchyLevels...), nil
	}
	want := make(map[Level]bool, len(names))
	for _, n := range names {
		l := Level(strings.ToLower(strings.TrimSpace(n)))
		switch l {
		case "centers", "exam-centres":
			l = LevelCentres
		}
		if !isLevel(l) {
			return nil, fmt.Errorf("unknown level %q (valid: %s)", n, strings.Join(levelNames(allLevels), ", "))
		}
		want[l] = true
	}
	var out []Level
	for _, l := range allLevels {
		if want[l] {
			out = append(out, l)
		}
	}
	return out, nil
}

func isLevel(l Level) bool {
	for _, known := range allLevels {
		if l == known {
			return true
		}
	}
	return false
}

func levelNames(levels []Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}
