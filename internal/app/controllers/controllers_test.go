package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	"github.com/yigit/enrolladmin/internal/bootstrap"
	"github.com/yigit/enrolladmin/internal/config"
	"github.com/yigit/enrolladmin/internal/middleware"
	"github.com/yigit/enrolladmin/internal/pkg/auth"
	"github.com/yigit/enrolladmin/internal/pkg/report"
	"github.com/yigit/enrolladmin/internal/seed"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "adminpass123"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

type apiTest struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	admin  string
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Server.StoragePath = t.TempDir()
	cfg.Server.PublicBaseURL = "/uploads"
	cfg.Server.MaxUploadBytes = 1 << 20
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.Issuer = "enrolladmin-test"
	cfg.Redis.MetricsTTL = "60s"
	cfg.Email.Provider = "log"

	ctx := context.Background()
	store := memory.NewStore()
	_, err := seed.CreateDefaultData(ctx, store, seed.Options{AdminEmail: adminEmail, AdminPassword: adminPassword}, zerolog.Nop())
	require.NoError(t, err)

	deps, err := bootstrap.BuildDependencies(ctx, cfg, store, zerolog.Nop())
	require.NoError(t, err)

	a := &apiTest{t: t, router: bootstrap.SetupRouter(cfg, deps, zerolog.Nop()), store: store}
	a.admin = a.login(adminEmail, adminPassword)
	return a
}

func (a *apiTest) request(method, path, token, contentType string, body []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiTest) json(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	w := a.request(method, path, token, "application/json", raw)
	return w, decode(a.t, w)
}

func (a *apiTest) multipart(path, token string, fields map[string]string, fileField, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(a.t, err)
		_, err = fw.Write(content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	w := a.request(http.MethodPost, path, token, mw.FormDataContentType(), buf.Bytes())
	return w, decode(a.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return env
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func (a *apiTest) login(email, password string) string {
	a.t.Helper()
	w, env := a.json(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.AccessToken
}

// catalog creates a course with one open offering and returns the offering id
func (a *apiTest) catalog(code string, capacity int) int64 {
	a.t.Helper()
	w, env := a.json(http.MethodPost, "/courses", a.admin, map[string]interface{}{
		"code": code, "name": "Course " + code, "competencyLevel": "basic",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var course models.Course
	require.NoError(a.t, json.Unmarshal(env.Data, &course))

	w, env = a.json(http.MethodPost, "/offerings", a.admin, map[string]interface{}{
		"courseId": course.ID, "batch": "2024-A", "capacity": capacity,
		"startDate": "2024-01-10", "endDate": "2024-06-10",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var offering models.CourseOffering
	require.NoError(a.t, json.Unmarshal(env.Data, &offering))
	return offering.ID
}

func (a *apiTest) register(email string, offeringID int64) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	return a.json(http.MethodPost, "/students/register", a.admin, map[string]interface{}{
		"firstName": "Test", "lastName": "Student", "email": email,
		"competencyLevel": "basic", "offeringId": offeringID,
	})
}

func (a *apiTest) registerOK(email string, offeringID int64) *models.Student {
	a.t.Helper()
	w, env := a.register(email, offeringID)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Student *models.Student `json:"student"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.Student
}

// studentToken creates a login bound to a student profile
func (a *apiTest) studentToken(studentID int64, email string) string {
	a.t.Helper()
	hash, err := auth.HashPassword("studentpass1")
	require.NoError(a.t, err)
	require.NoError(a.t, a.store.Repositories().Users.Create(context.Background(), &models.User{
		Email: email, Password: hash, FullName: "Portal " + email,
		RoleType: models.RoleStudent, StudentID: &studentID, IsActive: true,
	}))
	return a.login(email, "studentpass1")
}

func TestLoginAndAuthentication(t *testing.T) {
	a := newAPITest(t)

	w, env := a.json(http.MethodPost, "/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "InvalidCredentials", errorCode(env))

	w, _ = a.json(http.MethodGet, "/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = a.json(http.MethodGet, "/auth/me", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, adminEmail, me.Email)
	assert.Equal(t, models.RoleAdmin, me.RoleType)

	w, _ = a.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUserIsAdminOnly(t *testing.T) {
	a := newAPITest(t)

	w, _ := a.json(http.MethodPost, "/users", a.admin, map[string]string{
		"email": "clerk@example.com", "password": "clerkpass1", "fullName": "Clerk", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	staff := a.login("clerk@example.com", "clerkpass1")
	w, _ = a.json(http.MethodPost, "/users", staff, map[string]string{
		"email": "other@example.com", "password": "otherpass1", "fullName": "Other", "role": "staff",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := a.json(http.MethodPost, "/users", a.admin, map[string]string{
		"email": "clerk@example.com", "password": "clerkpass1", "fullName": "Clerk", "role": "staff",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EmailAlreadyExists", errorCode(env))
}

func TestRegistrationCapacity(t *testing.T) {
	a := newAPITest(t)
	offeringID := a.catalog("ENG-101", 1)

	a.registerOK("first@example.com", offeringID)

	w, env := a.register("second@example.com", offeringID)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CapacityExceeded", errorCode(env))

	w, env = a.json(http.MethodGet, "/students", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []models.Student `json:"items"`
		Pagination struct {
			TotalItems int64 `json:"totalItems"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 1, page.Pagination.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "first@example.com", page.Items[0].Email)

	w, env = a.json(http.MethodGet, fmt.Sprintf("/offerings/%d", offeringID), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var offering models.CourseOffering
	require.NoError(t, json.Unmarshal(env.Data, &offering))
	assert.Equal(t, 1, offering.ActiveEnrollmentCount)

	w, env = a.json(http.MethodPost, "/courses", a.admin, map[string]interface{}{
		"code": "not a code!", "name": "Bad", "competencyLevel": "basic",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code", env.Error.Field)
}

func TestStudentSeesOnlyOwnRecords(t *testing.T) {
	a := newAPITest(t)
	offeringID := a.catalog("ENG-101", 10)
	mine := a.registerOK("mine@example.com", offeringID)
	other := a.registerOK("other@example.com", offeringID)
	token := a.studentToken(mine.ID, "portal@example.com")

	w, _ := a.json(http.MethodGet, "/students", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.json(http.MethodGet, fmt.Sprintf("/students/%d", mine.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.json(http.MethodGet, fmt.Sprintf("/students/%d", other.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := a.json(http.MethodGet, "/enrollments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var enrollments []models.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollments))
	require.Len(t, enrollments, 1)
	assert.Equal(t, mine.ID, enrollments[0].StudentID)

	w, _ = a.json(http.MethodGet, fmt.Sprintf("/enrollments?studentId=%d", other.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.json(http.MethodPost, "/enrollments", token, map[string]int64{"studentId": mine.ID, "offeringId": offeringID})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaymentWithReceipt(t *testing.T) {
	a := newAPITest(t)
	student := a.registerOK("payer@example.com", a.catalog("ENG-101", 10))
	pdf := []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << >>\n%%EOF\n")
	fields := func(amount string) map[string]string {
		return map[string]string{"studentId": fmt.Sprint(student.ID), "paymentType": "tuition", "amount": amount}
	}

	w, env := a.multipart("/payments/upload-with-receipt", a.admin, fields("-5"), "receipt", "receipt.pdf", pdf)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidAmount", errorCode(env))

	w, env = a.multipart("/payments/upload-with-receipt", a.admin, fields("120.50"), "receipt", "payload.exe", []byte("MZ\x90\x00binary"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UnsupportedFileType", errorCode(env))

	w, env = a.multipart("/payments/upload-with-receipt", a.admin, fields("120.50"), "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "receipt", env.Error.Field)

	w, env = a.multipart("/payments/upload-with-receipt", a.admin, fields("120.50"), "receipt", "receipt.pdf", pdf)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment models.Payment
	require.NoError(t, json.Unmarshal(env.Data, &payment))
	assert.Equal(t, models.PaymentPending, payment.Status)
	require.NotNil(t, payment.Receipt)
	assert.Equal(t, "receipt.pdf", payment.Receipt.OriginalName)

	w, _ = a.json(http.MethodPut, fmt.Sprintf("/payments/%d/status", payment.ID), a.admin, map[string]string{"status": "complete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.json(http.MethodPut, fmt.Sprintf("/payments/%d/status", payment.ID), a.admin, map[string]string{"status": "failed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", errorCode(env))

	w, env = a.json(http.MethodGet, "/payments/summary", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		TotalRevenue string `json:"totalRevenue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "120.5", summary.TotalRevenue)

	w = a.request(http.MethodGet, "/payments/export", a.admin, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payments-")
}

func TestDocumentVerificationAndDownload(t *testing.T) {
	a := newAPITest(t)
	student := a.registerOK("docs@example.com", a.catalog("ENG-101", 10))
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0x01}, 64)...)

	w, env := a.multipart("/documents", a.admin, map[string]string{
		"studentId": fmt.Sprint(student.ID), "documentType": "id_photo",
	}, "file", "passport photo.png", png)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, models.DocumentPending, doc.Status)

	w, env = a.json(http.MethodPut, fmt.Sprintf("/documents/%d/status", doc.ID), a.admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MissingVerificationNotes", errorCode(env))

	w, _ = a.json(http.MethodPut, fmt.Sprintf("/documents/%d/status", doc.ID), a.admin, map[string]string{"status": "verified"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(http.MethodGet, fmt.Sprintf("/documents/%d/file", doc.ID), a.admin, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="passport photo.png"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, png, w.Body.Bytes())

	w = a.request(http.MethodGet, "/documents/9999/file", a.admin, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardMetrics(t *testing.T) {
	a := newAPITest(t)
	a.registerOK("count@example.com", a.catalog("ENG-101", 10))

	w1, env1 := a.json(http.MethodGet, "/dashboard/metrics", a.admin, nil)
	require.Equal(t, http.StatusOK, w1.Code)
	generatedAt, err := time.Parse(time.RFC3339Nano, w1.Header().Get(middleware.MetricsGeneratedAtHeader))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), generatedAt, time.Minute)

	w2, env2 := a.json(http.MethodGet, "/dashboard/metrics", a.admin, nil)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.JSONEq(t, string(env1.Data), string(env2.Data))

	var metrics models.DashboardMetrics
	require.NoError(t, json.Unmarshal(env1.Data, &metrics))
	assert.EqualValues(t, 1, metrics.EnrolledCount)
	assert.EqualValues(t, 1, metrics.OpenOfferingCount)
	assert.Len(t, metrics.MonthlyEnrollmentHistogram, 12)

	w, _ := a.json(http.MethodPost, "/dashboard/clear-cache", a.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScholarshipsAndReferrals(t *testing.T) {
	a := newAPITest(t)
	student := a.registerOK("referrer@example.com", a.catalog("ENG-101", 10))
	token := a.studentToken(student.ID, "referrer-portal@example.com")

	w, env := a.json(http.MethodPost, "/scholarships", a.admin, map[string]interface{}{
		"title": "Merit award", "amount": "500.00", "sponsorName": "Alumni Fund",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var offer models.ScholarshipOffer
	require.NoError(t, json.Unmarshal(env.Data, &offer))

	w, _ = a.json(http.MethodPut, fmt.Sprintf("/scholarships/%d/active", offer.ID), a.admin, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.json(http.MethodGet, "/scholarships?active=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = a.json(http.MethodPost, "/referrals", token, map[string]interface{}{
		"referrerStudentId": student.ID, "referredName": "A Friend", "referredEmail": "friend@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = a.json(http.MethodPost, "/referrals", token, map[string]interface{}{
		"referrerStudentId": student.ID + 100, "referredName": "Someone", "referredEmail": "someone@example.com",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.json(http.MethodGet, "/referrals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var referrals []models.Referral
	require.NoError(t, json.Unmarshal(env.Data, &referrals))
	require.Len(t, referrals, 1)
	assert.Equal(t, models.ReferralPending, referrals[0].Status)
}
