package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/enrolladmin/internal/app/models"
	appRepos "github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/auth"
)

// Options controls what CreateDefaultData writes
type Options struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	// SampleCatalog adds a few courses with one open offering each
	SampleCatalog bool
}

// Report counts what was actually created. Existing rows are left alone.
type Report struct {
	AdminCreated     bool
	CoursesCreated   int
	OfferingsCreated int
}

type sampleCourse struct {
	code  string
	name  string
	level appModels.CompetencyLevel
	seats int
}

var sampleCourses = []sampleCourse{
	{code: "ENG-101", name: "Foundations of English", level: appModels.CompetencyBasic, seats: 30},
	{code: "MTH-201", name: "Applied Mathematics", level: appModels.CompetencyCommon, seats: 25},
	{code: "CSC-301", name: "Software Engineering Practice", level: appModels.CompetencyCore, seats: 20},
}

// CreateDefaultData creates the first admin account and, optionally, a sample
// catalog. It can be run repeatedly.
func CreateDefaultData(ctx context.Context, store appRepos.Store, opts Options, lgr zerolog.Logger) (*Report, error) {
	report := &Report{}
	var finalErr error

	if opts.AdminEmail != "" {
		created, err := createAdmin(ctx, store, opts)
		if err != nil {
			lgr.Error().Err(err).Str("email", opts.AdminEmail).Msg("Error creating default admin")
			finalErr = errors.Join(finalErr, err)
		}
		report.AdminCreated = created
	}

	if opts.SampleCatalog {
		lgr.Info().Msg("Checking/Creating sample catalog...")
		existing, err := store.Repositories().Courses.List(ctx, false)
		if err != nil {
			return report, errors.Join(finalErr, fmt.Errorf("error listing courses: %w", err))
		}
		known := make(map[string]bool, len(existing))
		for _, c := range existing {
			known[c.Code] = true
		}

		start := firstOfNextMonth(time.Now().UTC())
		batch := start.Format("2006-01")
		for _, sc := range sampleCourses {
			if known[sc.code] {
				continue
			}
			err := store.WithTransaction(ctx, func(ctx context.Context, repos *appRepos.Repositories) error {
				course := &appModels.Course{Code: sc.code, Name: sc.name, CompetencyLevel: sc.level, IsActive: true}
				if err := repos.Courses.Create(ctx, course); err != nil {
					return err
				}
				return repos.Offerings.Create(ctx, &appModels.CourseOffering{
					CourseID:  course.ID,
					Batch:     batch,
					Capacity:  sc.seats,
					StartDate: start,
					EndDate:   start.AddDate(0, 4, 0),
					Status:    appModels.OfferingOpen,
				})
			})
			if err != nil && !errors.Is(err, apperrors.ErrCourseCodeExists) {
				lgr.Error().Err(err).Str("code", sc.code).Msg("Error creating sample course")
				finalErr = errors.Join(finalErr, err)
				continue
			}
			if err == nil {
				report.CoursesCreated++
				report.OfferingsCreated++
			}
		}
	}

	lgr.Info().
		Bool("adminCreated", report.AdminCreated).
		Int("coursesCreated", report.CoursesCreated).
		Msg("Default data check complete")
	return report, finalErr
}

func createAdmin(ctx context.Context, store appRepos.Store, opts Options) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	exists, err := store.Repositories().Users.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("error checking admin email: %w", err)
	}
	if exists {
		return false, nil
	}
	if opts.AdminPassword == "" {
		return false, fmt.Errorf("admin password is required to create %s", email)
	}

	hashed, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return false, err
	}
	name := opts.AdminName
	if name == "" {
		name = "Administrator"
	}

	err = store.Repositories().Users.Create(ctx, &appModels.User{
		Email:    email,
		Password: hashed,
		FullName: name,
		RoleType: appModels.RoleAdmin,
		IsActive: true,
	})
	if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating admin: %w", err)
	}
	return true, nil
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
