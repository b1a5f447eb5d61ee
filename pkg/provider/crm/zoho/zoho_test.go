package zoho_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/geniusjr001/claimsvoice/pkg/provider/crm/zoho"
)

// newStack spins up fake accounts and API servers and a client wired to them.
func newStack(t *testing.T, api http.HandlerFunc) (*zoho.Client, *int32) {
	t.Helper()

	var tokenCalls int32
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		if r.URL.Path != "/oauth/v2/token" {
			t.Errorf("token path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-1","expires_in":3600}`))
	}))
	t.Cleanup(accounts.Close)

	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	c, err := zoho.New("client-id", "client-secret", "refresh-token",
		zoho.WithAccountsURL(accounts.URL),
		zoho.WithAPIURL(apiSrv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &tokenCalls
}

func TestCreateLead(t *testing.T) {
	t.Parallel()

	c, tokenCalls := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v2/Leads" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken access-1" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Data []map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Data) != 1 {
			t.Fatalf("lead count = %d", len(body.Data))
		}
		lead := body.Data[0]
		if lead["Last_Name"] != "Jane Doe" {
			t.Errorf("Last_Name = %v", lead["Last_Name"])
		}
		if lead["Flight_Number"] != "BA123" {
			t.Errorf("Flight_Number = %v", lead["Flight_Number"])
		}
		if lead["Lead_Source"] != "Voice Intake" {
			t.Errorf("Lead_Source = %v", lead["Lead_Source"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"12345"}}]}`))
	})

	id, err := c.CreateLead(context.Background(), map[string]string{
		"Passenger Name": "Jane Doe",
		"Flight Number":  "BA123",
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if id != "12345" {
		t.Errorf("lead ID = %q", id)
	}

	// A second call reuses the cached access token.
	if _, err := c.CreateLead(context.Background(), map[string]string{"Passenger Name": "Jane Doe"}); err != nil {
		t.Fatalf("second CreateLead: %v", err)
	}
	if got := atomic.LoadInt32(tokenCalls); got != 1 {
		t.Errorf("token refreshes = %d, want 1", got)
	}
}

func TestCreateLeadRejected(t *testing.T) {
	t.Parallel()

	c, _ := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"data":[{"code":"MANDATORY_NOT_FOUND","message":"missing field"}]}`))
	})
	if _, err := c.CreateLead(context.Background(), map[string]string{"Passenger Name": "X"}); err == nil {
		t.Error("CreateLead on rejection succeeded")
	}
}

func TestAttachFile(t *testing.T) {
	t.Parallel()

	c, _ := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v2/Leads/12345/Attachments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		f.Close()
		if hdr.Filename != "boarding-pass.pdf" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.Write([]byte(`{"data":[{"code":"SUCCESS"}]}`))
	})

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := c.AttachFile(context.Background(), "12345", path, "boarding-pass.pdf"); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := zoho.New("", "secret", "refresh"); err == nil {
		t.Error("New with empty client ID succeeded")
	}
}
