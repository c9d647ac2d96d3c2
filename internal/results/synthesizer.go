// Package results synthesizes scored outcomes for exam applications from the
// exam's paper structure.
package results

import (
	"fmt"
	"math"
	"time"

	"examseed/internal/types"
)

// Rand supplies inclusive integer draws. *synth.Rand satisfies it; tests
// substitute scripted draws.
type Rand interface {
	IntRange(lo, hi int) int
}

const (
	// DefaultPassThreshold is the pass mark when none is configured.
	DefaultPassThreshold = 40.0

	// DefaultPaperMax is assumed when a paper carries no usable maximum.
	DefaultPaperMax = 100

	// Paper draws fall in [35%, 95%] of the paper maximum, floored.
	paperLowPercent  = 35
	paperHighPercent = 95

	oralMin, oralMax, oralOutOf          = 20, 48, 50
	projectMin, projectMax, projectOutOf = 25, 49, 50

	VerdictPass = "Pass"
	VerdictFail = "Fail"
)

// Options tunes the verdict.
type Options struct {
	// PassThreshold is the minimum percentage for a pass. Nil means
	// DefaultPassThreshold; a configured 0 passes everyone.
	PassThreshold *float64
	// PerPaperMinimum fails the result when any single paper scores below
	// PassThreshold, regardless of the aggregate.
	PerPaperMinimum bool
}

func (o Options) threshold() float64 {
	if o.PassThreshold == nil {
		return DefaultPassThreshold
	}
	return *o.PassThreshold
}

// Synthesize draws marks for every paper of exam and builds the result for
// applicationID. Missing papers yield an empty breakdown and 0%.
func Synthesize(applicationID int64, exam types.Exam, rng Rand, opts Options, publishedAt time.Time) types.Result {
	breakdown := make(map[string]int, len(exam.Papers))
	totalObtained, totalMax := 0, 0
	paperFailed := false

	for _, paper := range exam.Papers {
		maxMarks := paper.MaxMarks
		if maxMarks <= 0 {
			maxMarks = DefaultPaperMax
		}
		lo := maxMarks * paperLowPercent / 100
		hi := maxMarks * paperHighPercent / 100
		marks := rng.IntRange(lo, hi)

		breakdown[paper.Name] = marks
		totalObtained += marks
		totalMax += maxMarks
		if float64(marks)/float64(maxMarks)*100 < opts.threshold() {
			paperFailed = true
		}
	}

	data := types.ResultData{Breakdown: breakdown}

	if exam.Details.Structure.HasOral {
		oral := rng.IntRange(oralMin, oralMax)
		data.OralMarks = &oral
		totalObtained += oral
		totalMax += oralOutOf
	}
	if exam.Details.Structure.HasProject {
		project := rng.IntRange(projectMin, projectMax)
		data.ProjectMarks = &project
		totalObtained += project
		totalMax += projectOutOf
	}

	pct := Percentage(totalObtained, totalMax)
	verdict := VerdictPass
	if pct < opts.threshold() || (opts.PerPaperMinimum && paperFailed) {
		verdict = VerdictFail
	}

	data.Score = fmt.Sprintf("%.2f%%", pct)
	data.Remarks = verdict
	data.TotalObtained = totalObtained
	data.TotalMax = totalMax

	return types.Result{
		ApplicationID: applicationID,
		TotalMarks:    float64(totalMax),
		Percentage:    pct,
		Data:          data,
		PublishedAt:   publishedAt,
	}
}

// Percentage returns obtained/max*100 rounded to two decimals, or 0 when max is 0.
func Percentage(obtained, max int) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(float64(obtained)/float64(max)*100*100) / 100
}
