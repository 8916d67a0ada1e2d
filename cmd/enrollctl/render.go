package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/yigit/enrolladmin/internal/app/models"
)

func heading(w io.Writer, title string) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\n=== %s ===\n", title)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}

func renderMetrics(w io.Writer, m *models.DashboardMetrics) {
	heading(w, "Registry")
	table := newTable(w, "Metric", "Value")
	table.AppendBulk([][]string{
		{"Enrolled students", count(m.EnrolledCount)},
		{"Graduated students", count(m.GraduatedCount)},
		{"Dropped students", count(m.DroppedCount)},
		{"Open offerings", count(m.OpenOfferingCount)},
		{"Pending documents", count(m.PendingDocumentCount)},
		{"Pending payments", count(m.PendingPaymentCount)},
		{"Total revenue", m.TotalRevenue.StringFixed(2)},
	})
	table.Render()

	heading(w, "Competency breakdown")
	table = newTable(w, "Level", "Students")
	for _, level := range models.CompetencyLevels {
		table.Append([]string{string(level), count(m.CompetencyBreakdown[level])})
	}
	table.Render()

	heading(w, "Enrollments per month")
	table = newTable(w, "Month", "Enrollments")
	for _, b := range m.MonthlyEnrollmentHistogram {
		table.Append([]string{b.Month, count(b.Count)})
	}
	table.Render()
}

func renderStudents(w io.Writer, students []*models.Student, total int64) {
	heading(w, "Students")
	table := newTable(w, "Number", "Name", "Email", "Level", "Status", "Eligible")
	eligible := color.New(color.FgGreen).SprintFunc()
	for _, s := range students {
		mark := "no"
		if s.GraduationEligible {
			mark = eligible("yes")
		}
		table.Append([]string{
			s.StudentNumber,
			s.FullName(),
			s.Email,
			string(s.CompetencyLevel),
			string(s.EnrollmentStatus),
			mark,
		})
	}
	table.Render()
	color.New(color.FgYellow).Fprintf(w, "%d of %d shown\n", len(students), total)
	if int64(len(students)) < total {
		fmt.Fprintln(w, "use --limit to show more")
	}
}
