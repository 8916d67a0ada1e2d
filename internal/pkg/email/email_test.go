package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jane = Credentials{ToEmail: "jane@x.com", ToName: "Jane Doe", StudentNumber: "STU-2025-000001", Password: "s3cret"}

func TestSendgridServicePostsMail(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewEmailService(Config{
		Provider:  ProviderSendgrid,
		APIKey:    "key-123",
		FromEmail: "office@x.com",
		FromName:  "Office",
		LoginURL:  "https://admin.example/login",
		Host:      srv.URL,
	}, zerolog.Nop())

	require.NoError(t, svc.SendStudentCredentials(context.Background(), jane))

	from := got["from"].(map[string]interface{})
	assert.Equal(t, "office@x.com", from["email"])
	p := got["personalizations"].([]interface{})[0].(map[string]interface{})
	to := p["to"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "jane@x.com", to["email"])
}

func TestSendgridServiceReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewEmailService(Config{Provider: ProviderSendgrid, APIKey: "bad", Host: srv.URL}, zerolog.Nop())
	assert.Error(t, svc.SendStudentCredentials(context.Background(), jane))
}

func TestLogServiceUsedWithoutKey(t *testing.T) {
	svc := NewEmailService(Config{Provider: ProviderSendgrid}, zerolog.Nop())
	_, ok := svc.(*logService)
	assert.True(t, ok)
	assert.NoError(t, svc.SendStudentCredentials(context.Background(), jane))
}

func TestRenderCredentialsEscapesHTML(t *testing.T) {
	c := jane
	c.ToName = "<script>x</script>"
	_, text, html, err := renderCredentials(c, "")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "STU-2025-000001")
}
