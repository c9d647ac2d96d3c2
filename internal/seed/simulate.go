package seed

import (
	"context"
	"fmt"

	"examseed/internal/eligibility"
	"examseed/internal/fetch"
	"examseed/internal/gateway"
	"examseed/internal/results"
	"examseed/internal/types"

	"go.uber.org/zap"
)

const submissionDateLayout = "2006-01-02"

// Apply submits one application per student for the exam serving the
// student's age tier. Students without a matching exam are counted ineligible.
func (s *Seeder) Apply(ctx context.Context) error {
	students := loadCollection(ctx, s, types.CollectionStudents, fetch.JSON[types.Student])
	exams := loadCollection(ctx, s, types.CollectionExams, gateway.DecodeExam)

	catalogue := eligibility.NewCatalogue(exams)
	if catalogue.Empty() {
		s.simLog.Warn("no exam matches any tier; every student will be ineligible", zap.Int("exams", len(exams)))
	} else {
		s.simLog.Info("exam catalogue resolved", zap.Any("tiers", catalogue.Available()))
	}
	if len(students) == 0 {
		s.simLog.Warn("no students available; nothing to apply")
	}

	submitted := s.opts.SubmissionDate
	if submitted == "" {
		submitted = s.now().Format(submissionDateLayout)
	}

	for i, student := range students {
		if err := ctx.Err(); err != nil {
			return err
		}
		tier, exam, ok := catalogue.ForAge(student.Age)
		label := fmt.Sprintf("%s (age %d)", student.FullName(), student.Age)
		if !ok {
			s.finish(Record{
				Kind:     types.KindApplication,
				ParentID: student.StudentID,
				Index:    i + 1,
				Label:    label,
				State:    Ineligible,
				Reason:   fmt.Sprintf("no exam for tier %s", tier),
			})
			continue
		}

		app := types.Application{
			StudentID:   student.StudentID,
			StudentName: student.FullName(),
			ExamNo:      exam.ExamNo,
			Status:      s.opts.ApplicationStatus,
			Form: types.FormData{
				ApplicationType: s.opts.ApplicationType,
				Remarks:         fmt.Sprintf("Eligible for %s based on age %d", tier.Title(), student.Age),
				SubmissionDate:  submitted,
			},
		}
		s.track(types.KindApplication, student.StudentID, i+1, label+" -> "+exam.ExamName, func() gateway.Outcome {
			return s.svc.SubmitApplication(ctx, app)
		})
	}
	return nil
}

// Publish synthesizes and publishes a result for every application. An
// application whose exam is unknown is skipped.
func (s *Seeder) Publish(ctx context.Context) error {
	apps := loadCollection(ctx, s, types.CollectionApplications, gateway.DecodeApplication)
	exams := loadCollection(ctx, s, types.CollectionExams, gateway.DecodeExam)

	byNo := make(map[int64]types.Exam, len(exams))
	for _, e := range exams {
		byNo[e.ExamNo] = e
	}
	if len(apps) == 0 {
		s.simLog.Warn("no applications available; nothing to publish")
	}

	rng := s.gen.Rand()
	for i, app := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := fmt.Sprintf("application %d (%s)", app.ApplicationID, app.StudentName)
		exam, ok := byNo[app.ExamNo]
		if !ok {
			s.finish(Record{
				Kind:     types.KindResult,
				ParentID: app.ApplicationID,
				Index:    i + 1,
				Label:    label,
				State:    Skipped,
				Reason:   fmt.Sprintf("exam %d not found", app.ExamNo),
			})
			continue
		}

		result := results.Synthesize(app.ApplicationID, exam, rng, s.opts.Results, s.now())
		s.track(types.KindResult, app.ApplicationID, i+1, fmt.Sprintf("%s %.2f%% %s", label, result.Percentage, result.Data.Remarks), func() gateway.Outcome {
			return s.svc.PublishResult(ctx, result)
		})
	}
	return nil
}
