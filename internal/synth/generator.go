// Package synth produces constrained-random field values for synthetic
// regions, centres, schools and students.
//
// All randomness flows through an injected rand.Source so a fixed seed
// reproduces the same dataset. Deterministic fields (codes, emails, school
// names) never consume randomness.
package synth

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"examseed/internal/types"
)

// Config holds the pools and ranges the generator draws from.
type Config struct {
	FirstNames    []string `yaml:"first_names"`
	MiddleNames   []string `yaml:"middle_names"`
	LastNames     []string `yaml:"last_names"`
	MotherTongues []string `yaml:"mother_tongues"`
	SchoolTypes   []string `yaml:"school_types"`

	AgeMin int `yaml:"age_min"`
	AgeMax int `yaml:"age_max"`

	EmailDomain      string `yaml:"email_domain"`
	CentreCodePrefix string `yaml:"centre_code_prefix"`
	CentreCodeLength int    `yaml:"centre_code_length"`

	// PasswordFormat receives the student index, e.g. "student%d123".
	PasswordFormat string `yaml:"password_format"`
}

// DefaultConfig returns the pools used by the original seeding runs.
func DefaultConfig() Config {
	return Config{
		FirstNames: []string{
			"Aarav", "Vivaan", "Aditya", "Vihaan", "Arjun", "Sai", "Arnav", "Ayaan", "Krishna", "Ishaan",
			"Shaurya", "Atharv", "Advik", "Pranav", "Reyansh", "Aadhya", "Ananya", "Pari", "Anika", "Navya",
			"Diya", "Saanvi", "Myra", "Sara", "Ira", "Kiara", "Riya", "Shanaya", "Prisha", "Kavya",
			"Aryan", "Rohan", "Karan", "Rahul", "Amit", "Raj", "Nikhil", "Varun", "Yash", "Harsh",
			"Priya", "Neha", "Pooja", "Sneha", "Anjali", "Divya", "Shruti", "Simran", "Tanvi", "Ishita",
		},
		MiddleNames: []string{
			"Ramesh", "Suresh", "Vijay", "Anil", "Deepak", "Manoj", "Ganesh", "Prakash", "Rajan", "Santosh",
			"Shyam", "Dilip", "Nitin", "Rajesh", "Mohan", "Sunil", "Umesh", "Ashok", "Hemant", "Mahesh",
		},
		LastNames: []string{
			"Sharma", "Patel", "Kumar", "Singh", "Reddy", "Gupta", "Joshi", "Desai", "Mehta", "Nair",
			"Iyer", "Rao", "Kulkarni", "Jain", "Shah", "Agarwal", "Verma", "Chopra", "Malhotra", "Kapoor",
			"Pandey", "Mishra", "Tiwari", "Dubey", "Shukla", "Yadav", "Chauhan", "Rajput", "Thakur", "Bhat",
		},
		MotherTongues:    []string{"Hindi", "Marathi"},
		SchoolTypes:      []string{"Public School", "Academy", "International School", "High School", "Convent"},
		AgeMin:           13,
		AgeMax:           18,
		EmailDomain:      "student.edu",
		CentreCodePrefix: "C_",
		CentreCodeLength: 10,
		PasswordFormat:   "student%d123",
	}
}

// Validate reports a configuration the generator cannot draw from.
func (c Config) Validate() error {
	if len(c.FirstNames) == 0 || len(c.LastNames) == 0 {
		return fmt.Errorf("first and last name pools must not be empty")
	}
	if len(c.MotherTongues) == 0 {
		return fmt.Errorf("mother tongue pool must not be empty")
	}
	if len(c.SchoolTypes) == 0 {
		return fmt.Errorf("school type pool must not be empty")
	}
	if c.AgeMin > c.AgeMax {
		return fmt.Errorf("age range is empty: [%d,%d]", c.AgeMin, c.AgeMax)
	}
	if c.EmailDomain == "" {
		return fmt.Errorf("email domain is required")
	}
	return nil
}

// Generator builds synthetic entities. It is not safe for concurrent use.
type Generator struct {
	cfg  Config
	rand *Rand
}

// New creates a generator over cfg drawing from src.
func New(cfg Config, src rand.Source) *Generator {
	return &Generator{cfg: cfg, rand: NewRand(src)}
}

// Rand exposes the generator's randomness so downstream synthesis shares one seed.
func (g *Generator) Rand() *Rand {
	return g.rand
}

// FirstName picks from the first-name pool. Repeats are expected.
func (g *Generator) FirstName() string {
	return pick(g.rand, g.cfg.FirstNames)
}

// MiddleName picks from the middle-name pool, or "" if the pool is empty.
func (g *Generator) MiddleName() string {
	if len(g.cfg.MiddleNames) == 0 {
		return ""
	}
	return pick(g.rand, g.cfg.MiddleNames)
}

// LastName picks from the last-name pool.
func (g *Generator) LastName() string {
	return pick(g.rand, g.cfg.LastNames)
}

// MotherTongue picks from the configured languages.
func (g *Generator) MotherTongue() string {
	return pick(g.rand, g.cfg.MotherTongues)
}

// Contact returns a 10-digit mobile number starting with 7, 8 or 9.
func (g *Generator) Contact() string {
	lead := g.rand.IntRange(7, 9)
	rest := g.rand.IntRange(0, 999_999_999)
	return fmt.Sprintf("%d%09d", lead, rest)
}

// Age draws uniformly from [AgeMin, AgeMax].
func (g *Generator) Age() int {
	return g.rand.IntRange(g.cfg.AgeMin, g.cfg.AgeMax)
}

// Email derives first.last{index}@domain. Collisions are reduced, not prevented.
func (g *Generator) Email(first, last string, index int) string {
	return fmt.Sprintf("%s.%s%d@%s", slug(first), slug(last), index, g.cfg.EmailDomain)
}

// Password derives the login password for the student at index.
func (g *Generator) Password(index int) string {
	if g.cfg.PasswordFormat == "" {
		return fmt.Sprintf("student%d123", index)
	}
	return fmt.Sprintf(g.cfg.PasswordFormat, index)
}

// SchoolName names the index-th (1-based) school of a centre by cycling the school types.
func (g *Generator) SchoolName(centreName string, index int) string {
	suffix := g.cfg.SchoolTypes[(index-1+len(g.cfg.SchoolTypes))%len(g.cfg.SchoolTypes)]
	return fmt.Sprintf("%s %s %d", centreName, suffix, index)
}

// CentreCode derives the configured code for a centre name.
func (g *Generator) CentreCode(name string) string {
	return CentreCode(name, g.cfg.CentreCodePrefix, g.cfg.CentreCodeLength)
}

// Centre builds the creation payload for a named centre in a region.
func (g *Generator) Centre(regionID int64, name string) types.Centre {
	return types.Centre{
		CentreName: name,
		CentreCode: g.CentreCode(name),
		RegionID:   regionID,
	}
}

// School builds the index-th school payload of a centre.
func (g *Generator) School(centre types.Centre, index int) types.School {
	return types.School{
		SchoolName: g.SchoolName(centre.CentreName, index),
		CentreID:   centre.CentreID,
	}
}

// Student builds a complete student payload for school. index feeds the
// deterministic email and password.
func (g *Generator) Student(index int, school types.School) types.Student {
	first := g.FirstName()
	middle := g.MiddleName()
	last := g.LastName()
	return types.Student{
		FirstName:    first,
		MiddleName:   middle,
		LastName:     last,
		Contact:      g.Contact(),
		Email:        g.Email(first, last, index),
		Age:          g.Age(),
		MotherTongue: g.MotherTongue(),
		Password:     g.Password(index),
		SchoolID:     school.SchoolID,
	}
}

// CentreCode upper-cases name, replaces spaces with underscores, truncates to
// length runes (0 means no limit) and prepends prefix.
func CentreCode(name, prefix string, length int) string {
	code := []rune(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_")))
	if length > 0 && len(code) > length {
		code = code[:length]
	}
	return prefix + string(code)
}

func pick(r *Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}

// slug lower-cases s and drops everything but letters and digits.
func slug(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
