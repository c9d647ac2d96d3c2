// Package eligibility maps a student's age to an exam tier and resolves the
// exam definition serving that tier.
package eligibility

import (
	"strings"

	"examseed/internal/types"
)

// Tier is one of the three exam levels a student qualifies for by age.
type Tier string

const (
	Prathamik Tier = "prathamik"
	Prabodh   Tier = "prabodh"
	Pravin    Tier = "pravin"
)

// Tiers lists the tiers in ascending order.
var Tiers = []Tier{Prathamik, Prabodh, Pravin}

// matchOrder is the order exam names are tested against tier keywords. A name
// carrying more than one keyword binds to the first listed here.
var matchOrder = []Tier{Prathamik, Pravin, Prabodh}

// Title returns the tier with an upper-case first letter.
func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Classify returns the tier for age. Every integer maps to exactly one tier:
// below 14 is prathamik, 14 and 15 are prabodh, above 15 is pravin.
func Classify(age int) Tier {
	switch {
	case age < 14:
		return Prathamik
	case age <= 15:
		return Prabodh
	default:
		return Pravin
	}
}

// Catalogue holds the exam serving each tier.
type Catalogue struct {
	exams map[Tier]types.Exam
}

// NewCatalogue indexes exams by the tier keyword contained in their name
// (case-insensitive), testing prathamik, then pravin, then prabodh. The first
// exam matching a tier wins.
func NewCatalogue(exams []types.Exam) *Catalogue {
	c := &Catalogue{exams: make(map[Tier]types.Exam, len(Tiers))}
	for _, exam := range exams {
		name := strings.ToLower(exam.ExamName)
		for _, tier := range matchOrder {
			if !strings.Contains(name, string(tier)) {
				continue
			}
			if _, taken := c.exams[tier]; !taken {
				c.exams[tier] = exam
			}
			break
		}
	}
	return c
}

// Lookup returns the exam for tier.
func (c *Catalogue) Lookup(tier Tier) (types.Exam, bool) {
	exam, ok := c.exams[tier]
	return exam, ok
}

// ForAge classifies age and looks up the exam for the resulting tier.
func (c *Catalogue) ForAge(age int) (Tier, types.Exam, bool) {
	tier := Classify(age)
	exam, ok := c.Lookup(tier)
	return tier, exam, ok
}

// Available lists the tiers that have an exam, in ascending order.
func (c *Catalogue) Available() []Tier {
	var out []Tier
	for _, tier := range Tiers {
		if _, ok := c.exams[tier]; ok {
			out = append(out, tier)
		}
	}
	return out
}

// Empty reports whether no tier has an exam.
func (c *Catalogue) Empty() bool {
	return len(c.exams) == 0
}
