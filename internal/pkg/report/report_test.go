package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/enrolladmin/internal/app/models"
)

func TestWriteStudents(t *testing.T) {
	phone := "555-0101"
	grad := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	students := []*models.Student{
		{
			StudentNumber: "STU-2025-000001", FirstName: "Jane", LastName: "Doe", Email: "jane@x.com",
			Phone: &phone, CompetencyLevel: models.CompetencyCore, EnrollmentStatus: models.StudentGraduated,
			GraduationEligible: true, EnrollmentDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
			GraduationDate: &grad,
		},
		{
			StudentNumber: "STU-2025-000002", FirstName: "John", LastName: "Roe", Email: "john@x.com",
			CompetencyLevel: models.CompetencyBasic, EnrollmentStatus: models.StudentEnrolled,
			EnrollmentDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStudents(&buf, students))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{StudentsSheet}, f.GetSheetList())

	rows, err := f.GetRows(StudentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, studentHeaders, rows[0])
	assert.Equal(t, "STU-2025-000001", rows[1][0])
	assert.Equal(t, "555-0101", rows[1][4])
	assert.Equal(t, "yes", rows[1][7])
	assert.Equal(t, "2025-06-30", rows[1][9])
	assert.Equal(t, "enrolled", rows[2][6])
}

func TestWritePaymentsKeepsDecimalText(t *testing.T) {
	ref := "TX-1"
	payments := []*models.Payment{{
		ID: 7, StudentID: 3, PaymentType: models.PaymentTuition,
		Amount: decimal.RequireFromString("1234.5"), Status: models.PaymentPending,
		PaymentDate:     time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		ReferenceNumber: &ref,
		Receipt:         &models.StoredFile{URL: "/uploads/receipts/a.pdf"},
	}}

	var buf bytes.Buffer
	require.NoError(t, WritePayments(&buf, payments))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	amount, err := f.GetCellValue(PaymentsSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "1234.50", amount)

	receipt, err := f.GetCellValue(PaymentsSheet, "H2")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/receipts/a.pdf", receipt)
}

func TestWriteEmptyExportHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePayments(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(PaymentsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
