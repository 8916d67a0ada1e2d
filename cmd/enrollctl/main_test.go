package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	"github.com/yigit/enrolladmin/internal/config"
)

func newTestCLI(t *testing.T) (*cli, *memory.Store, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true

	store := memory.NewStore()
	cfg := &config.Config{}
	cfg.Seed.AdminEmail = "admin@example.com"
	cfg.Seed.AdminPassword = "changeme123"

	out := &bytes.Buffer{}
	c := &cli{
		out: out,
		open: func(context.Context, *cli) (*env, error) {
			return &env{cfg: cfg, store: store, lgr: zerolog.Nop()}, nil
		},
	}
	return c, store, out
}

func execute(t *testing.T, c *cli, args ...string) error {
	t.Helper()
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(c.out)
	root.SetErr(c.out)
	return root.ExecuteContext(context.Background())
}

func stubPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func TestCreateUser(t *testing.T) {
	c, store, out := newTestCLI(t)
	stubPassword(t, "s3cretpass", nil)

	require.NoError(t, execute(t, c, "create-user", "--email", "Clerk@Example.com", "--name", "Front Desk"))
	assert.Contains(t, out.String(), "created staff user clerk@example.com")

	user, err := store.Repositories().Users.GetByEmail(context.Background(), "clerk@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.RoleType)
}

func TestCreateUserRejects(t *testing.T) {
	t.Run("empty password", func(t *testing.T) {
		c, _, _ := newTestCLI(t)
		stubPassword(t, "", nil)
		assert.Error(t, execute(t, c, "create-user", "--email", "a@example.com", "--name", "A"))
	})

	t.Run("unreadable terminal", func(t *testing.T) {
		c, _, _ := newTestCLI(t)
		stubPassword(t, "", errors.New("not a terminal"))
		err := execute(t, c, "create-user", "--email", "a@example.com", "--name", "A")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading password")
	})

	t.Run("student role", func(t *testing.T) {
		c, _, _ := newTestCLI(t)
		stubPassword(t, "s3cretpass", nil)
		assert.Error(t, execute(t, c, "create-user", "--email", "a@example.com", "--name", "A", "--role", "student"))
	})

	t.Run("missing email flag", func(t *testing.T) {
		c, _, _ := newTestCLI(t)
		stubPassword(t, "s3cretpass", nil)
		assert.Error(t, execute(t, c, "create-user", "--name", "A"))
	})
}

func TestSeedThenMetrics(t *testing.T) {
	c, _, out := newTestCLI(t)

	require.NoError(t, execute(t, c, "seed"))
	assert.Contains(t, out.String(), "admin created: true, courses created: 3")

	out.Reset()
	require.NoError(t, execute(t, c, "metrics"))
	text := out.String()
	assert.Contains(t, text, "Open offerings")
	assert.Contains(t, text, "Competency breakdown")
	assert.Contains(t, text, "0.00")
	assert.Contains(t, text, time.Now().UTC().Format("2006-01"))
}

func TestStudents(t *testing.T) {
	c, store, out := newTestCLI(t)
	ctx := context.Background()
	for i, name := range []string{"Ada", "Grace"} {
		require.NoError(t, store.Repositories().Students.Create(ctx, &models.Student{
			StudentNumber:    models.FormatStudentNumber(2024, int64(i+1)),
			FirstName:        name,
			LastName:         "Tester",
			Email:            name + "@example.com",
			CompetencyLevel:  models.CompetencyBasic,
			EnrollmentStatus: models.StudentEnrolled,
			EnrollmentDate:   time.Now().UTC(),
		}))
	}

	require.NoError(t, execute(t, c, "students", "--limit", "1"))
	assert.Contains(t, out.String(), "1 of 2 shown")

	out.Reset()
	require.NoError(t, execute(t, c, "students", "--status", "graduated"))
	assert.Contains(t, out.String(), "0 of 0 shown")

	assert.Error(t, execute(t, c, "students", "--status", "expelled"))
}

func TestMigrateNeedsPostgres(t *testing.T) {
	c, _, _ := newTestCLI(t)
	err := execute(t, c, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
