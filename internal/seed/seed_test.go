package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	"github.com/yigit/enrolladmin/internal/pkg/auth"
)

func TestCreateDefaultDataIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	opts := Options{AdminEmail: "Admin@Example.com", AdminPassword: "changeme123", SampleCatalog: true}

	first, err := CreateDefaultData(ctx, store, opts, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, len(sampleCourses), first.CoursesCreated)
	assert.Equal(t, len(sampleCourses), first.OfferingsCreated)

	admin, err := store.Repositories().Users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.RoleType)
	assert.True(t, admin.IsActive)
	assert.True(t, auth.CheckPassword(admin.Password, "changeme123"))

	offerings, err := store.Repositories().Offerings.List(ctx, models.OfferingFilter{})
	require.NoError(t, err)
	require.Len(t, offerings, len(sampleCourses))
	for _, o := range offerings {
		assert.Equal(t, models.OfferingOpen, o.Status)
		assert.True(t, o.EndDate.After(o.StartDate))
	}

	second, err := CreateDefaultData(ctx, store, opts, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Zero(t, second.CoursesCreated)
}

func TestCreateDefaultDataRequiresAdminPassword(t *testing.T) {
	report, err := CreateDefaultData(context.Background(), memory.NewStore(), Options{AdminEmail: "admin@example.com"}, zerolog.Nop())
	require.Error(t, err)
	assert.False(t, report.AdminCreated)
}
