package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/bootstrap"
	"github.com/yigit/enrolladmin/internal/seed"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd, func(ctx context.Context, e *env) error {
				if e.db == nil {
					return errors.New("migrate requires database.driver postgres")
				}
				n, err := bootstrap.RunMigrations(ctx, e.db, e.lgr)
				if err != nil {
					return err
				}
				okf(c.out, "%d migration(s) applied", n)
				return nil
			})
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	var (
		adminEmail    string
		adminPassword string
		noCatalog     bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin and a sample catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd, func(ctx context.Context, e *env) error {
				opts := seed.Options{
					AdminEmail:    firstNonEmpty(adminEmail, e.cfg.Seed.AdminEmail),
					AdminPassword: firstNonEmpty(adminPassword, e.cfg.Seed.AdminPassword),
					SampleCatalog: !noCatalog,
				}
				report, err := seed.CreateDefaultData(ctx, e.store, opts, e.lgr)
				if err != nil {
					return err
				}
				okf(c.out, "admin created: %t, courses created: %d, offerings created: %d",
					report.AdminCreated, report.CoursesCreated, report.OfferingsCreated)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "admin email (defaults to seed.admin_email)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin password (defaults to seed.admin_password)")
	cmd.Flags().BoolVar(&noCatalog, "no-catalog", false, "skip the sample courses")
	return cmd
}

func newCreateUserCmd(c *cli) *cobra.Command {
	var (
		email string
		name  string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff or admin account. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(c.out, "Enter password: ")
			pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
			fmt.Fprintln(c.out)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			if len(pwd) == 0 {
				return errors.New("password must not be empty")
			}

			return c.withEnv(cmd, func(ctx context.Context, e *env) error {
				authService := services.NewAuthService(e.store, nil, e.lgr)
				user, err := authService.CreateUser(ctx, &dto.CreateUserRequest{
					Email:    strings.TrimSpace(email),
					Password: string(pwd),
					FullName: strings.TrimSpace(name),
					Role:     models.RoleType(role),
				})
				if err != nil {
					return err
				}
				okf(c.out, "created %s user %s (id %d)", user.RoleType, user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStaff), "admin or staff")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newMetricsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the dashboard metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd, func(ctx context.Context, e *env) error {
				m, err := services.NewDashboardService(e.store, nil, 0, e.lgr).ComputeMetrics(ctx)
				if err != nil {
					return err
				}
				renderMetrics(c.out, m)
				return nil
			})
		},
	}
}

func newStudentsCmd(c *cli) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.StudentFilter{Limit: limit}
			if status != "" {
				st := models.StudentStatus(status)
				if !st.IsValid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &st
			}
			return c.withEnv(cmd, func(ctx context.Context, e *env) error {
				students, total, err := e.store.Repositories().Students.List(ctx, filter)
				if err != nil {
					return err
				}
				renderStudents(c.out, students, total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "enrolled, graduated or dropped")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to print")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
