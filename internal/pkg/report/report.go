// Package report renders registry and ledger exports as XLSX workbooks
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"github.com/yigit/enrolladmin/internal/app/models"
)

// ContentType is the MIME type of the generated workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names
const (
	StudentsSheet = "Students"
	PaymentsSheet = "Payments"
)

var studentHeaders = []string{
	"Student Number", "Last Name", "First Name", "Email", "Phone", "Competency",
	"Status", "Graduation Eligible", "Enrollment Date", "Graduation Date",
}

var paymentHeaders = []string{
	"ID", "Student ID", "Type", "Amount", "Status", "Payment Date", "Reference", "Receipt",
}

func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteStudents writes one row per student to w
func WriteStudents(w io.Writer, students []*models.Student) error {
	f, err := newWorkbook(StudentsSheet, studentHeaders)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, s := range students {
		eligible := "no"
		if s.GraduationEligible {
			eligible = "yes"
		}
		graduation := ""
		if s.GraduationDate != nil {
			graduation = s.GraduationDate.Format(models.DateLayout)
		}
		err := setRow(f, StudentsSheet, i+2, []interface{}{
			s.StudentNumber, s.LastName, s.FirstName, s.Email, optional(s.Phone),
			string(s.CompetencyLevel), string(s.EnrollmentStatus), eligible,
			s.EnrollmentDate.Format(models.DateLayout), graduation,
		})
		if err != nil {
			return fmt.Errorf("failed to write student row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write students workbook: %w", err)
	}
	return nil
}

// WritePayments writes one row per payment to w. Amounts are written as text so
// the decimal value is not rounded through a float.
func WritePayments(w io.Writer, payments []*models.Payment) error {
	f, err := newWorkbook(PaymentsSheet, paymentHeaders)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, p := range payments {
		receipt := ""
		if p.Receipt != nil {
			receipt = p.Receipt.URL
		}
		err := setRow(f, PaymentsSheet, i+2, []interface{}{
			p.ID, p.StudentID, string(p.PaymentType), p.Amount.StringFixed(2), string(p.Status),
			p.PaymentDate.Format(models.DateLayout), optional(p.ReferenceNumber), receipt,
		})
		if err != nil {
			return fmt.Errorf("failed to write payment row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write payments workbook: %w", err)
	}
	return nil
}
