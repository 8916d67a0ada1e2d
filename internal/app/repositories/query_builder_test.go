package repositories

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
)

func TestBuildStudentListQuery(t *testing.T) {
	core := models.CompetencyCore
	status := models.StudentEnrolled
	batch := "2026-A"
	search := "o'neil_50%"

	tests := []struct {
		name     string
		filter   models.StudentFilter
		contains []string
		absent   []string
		args     []interface{}
	}{
		{
			name:     "no filters sorts ascending",
			filter:   models.StudentFilter{},
			contains: []string{"FROM students s", "ORDER BY s.last_name ASC, s.first_name ASC, s.id ASC"},
			absent:   []string{"WHERE", "LIMIT"},
			args:     nil,
		},
		{
			name:     "competency and status bound as parameters",
			filter:   models.StudentFilter{Competency: &core, Status: &status, NameSort: models.SortDesc, Limit: 20, Offset: 40},
			contains: []string{"s.competency_level = $1", "s.enrollment_status = $2", "s.last_name DESC", "LIMIT 20", "OFFSET 40"},
			args:     []interface{}{core, status},
		},
		{
			name:     "batch goes through active enrollments",
			filter:   models.StudentFilter{Batch: &batch},
			contains: []string{"EXISTS (SELECT 1 FROM enrollments e JOIN course_offerings o", "e.status = 'enrolled'", "o.batch = $1"},
			args:     []interface{}{batch},
		},
		{
			name:     "search escapes like wildcards",
			filter:   models.StudentFilter{Search: &search},
			contains: []string{"s.first_name ILIKE $1", "s.last_name ILIKE $2", "s.email ILIKE $3", "s.student_number ILIKE $4"},
			args: []interface{}{
				`%o'neil\_50\%%`, `%o'neil\_50\%%`, `%o'neil\_50\%%`, `%o'neil\_50\%%`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, count := buildStudentListQuery(tt.filter)

			sql, args, err := list.ToSql()
			require.NoError(t, err)
			for _, fragment := range tt.contains {
				assert.Contains(t, sql, fragment)
			}
			for _, fragment := range tt.absent {
				assert.NotContains(t, sql, fragment)
			}
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
			assert.NotContains(t, sql, "o'neil", "user input must never be inlined")

			countSQL, countArgs, err := count.ToSql()
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(countSQL, "SELECT COUNT(*) FROM students s"))
			assert.NotContains(t, countSQL, "ORDER BY")
			assert.Equal(t, len(args), len(countArgs))
		})
	}
}

func TestApplyPaymentFilters(t *testing.T) {
	studentID := int64(7)
	pending := models.PaymentPending

	sql, args, err := applyPaymentFilters(psql.Select("COUNT(*)").From("payments"), models.PaymentFilter{
		StudentID: &studentID,
		Status:    &pending,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM payments WHERE student_id = $1 AND status = $2", sql)
	assert.Equal(t, []interface{}{studentID, pending}, args)
}
