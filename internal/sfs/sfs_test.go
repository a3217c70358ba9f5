package sfs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/dfsbridge/internal/domain"
)

var fillTime = time.Date(2017, 10, 10, 12, 0, 0, 0, time.UTC)

// --- XML Tests ---

func TestBuildRequest_Company(t *testing.T) {
	data := domain.NewData("tender-1", "award-1", "14360570", domain.ItemKindAwards, "doc-1", "")
	data.CompanyName = "ТОВ Ромашка"

	out, err := BuildRequest(data, 1, fillTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := string(out)
	for _, want := range []string{
		"<HNUM>1</HNUM>",
		"<HTIN>14360570</HTIN>",
		"<HLNAMEU>ТОВ Ромашка</HLNAMEU>",
		"<HLNAME></HLNAME>",
		"<ID>tender-1</ID>",
		"<HFILL>2017-10-10T12:00:00Z</HFILL>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in:\n%s", want, s)
		}
	}
}

func TestBuildRequest_Person(t *testing.T) {
	data := domain.NewData("tender-1", "award-1", "1234567890", domain.ItemKindAwards, "doc-1", "")
	data.LastName, data.FirstName, data.FamilyName = domain.SplitPersonName("Шевченко Тарас Григорович")

	out, err := BuildRequest(data, 7, fillTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := string(out)
	for _, want := range []string{
		"<HLNAMEU></HLNAMEU>",
		"<HLNAME>Шевченко</HLNAME>",
		"<HPNAME>Тарас</HPNAME>",
		"<HFNAME>Григорович</HFNAME>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in:\n%s", want, s)
		}
	}
}

func TestBuildRequest_MissingNameFails(t *testing.T) {
	data := domain.NewData("tender-1", "award-1", "14360570", domain.ItemKindAwards, "doc-1", "")

	if _, err := BuildRequest(data, 1, fillTime); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestValidateRequest(t *testing.T) {
	valid := `<request><HNUM>1</HNUM><HTIN>14360570</HTIN><HLNAMEU>X</HLNAMEU>` +
		`<HLNAME></HLNAME><HPNAME></HPNAME><HFNAME></HFNAME><ID>t1</ID><HFILL>2017-10-10T12:00:00Z</HFILL></request>`

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid company", valid, false},
		{"not xml", "garbage", true},
		{"wrong root", strings.ReplaceAll(valid, "request>", "req>"), true},
		{"zero hnum", strings.Replace(valid, "<HNUM>1", "<HNUM>0", 1), true},
		{"bad htin", strings.Replace(valid, "14360570", "12345", 1), true},
		{"no tender id", strings.Replace(valid, "<ID>t1</ID>", "<ID></ID>", 1), true},
		{"bad hfill", strings.Replace(valid, "2017-10-10T12:00:00Z", "yesterday", 1), true},
		{"both names", strings.Replace(valid, "<HLNAME></HLNAME>", "<HLNAME>Y</HLNAME>", 1), true},
		{
			"passport person",
			strings.NewReplacer("14360570", "АБ123456", "<HLNAMEU>X</HLNAMEU>", "<HLNAMEU></HLNAMEU>",
				"<HLNAME></HLNAME>", "<HLNAME>Y</HLNAME>").Replace(valid),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

// --- Client Tests ---

func TestClient_CheckRequest(t *testing.T) {
	var got checkBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/check" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "bot" || pass != "secret" {
			t.Errorf("expected basic auth, got %q %q %v", user, pass, ok)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"qtDocs": 2}`))
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL, User: "bot", Password: "secret"})
	result, err := client.CheckRequest(context.Background(), "14360570", DefaultDeptID, DefaultDeptsProc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QtDocs != 2 {
		t.Errorf("expected 2 docs, got %d", result.QtDocs)
	}
	if got.EDRID != "14360570" || got.DeptID != 1 || got.DeptsProc != 1 {
		t.Errorf("unexpected request body: %+v", got)
	}
}

func TestClient_ReceiveRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body receiveBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.CAName != "ca" || body.Cert != "cert" {
			t.Errorf("unexpected receive body: %+v", body)
		}
		w.Write([]byte(`{"docs": [{"name": "ref.pdf", "content": "AAA="}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})
	result, err := client.ReceiveRequest(context.Background(), "14360570", 1, 1, "ca", "cert")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Docs) != 1 || result.Docs[0].Name != "ref.pdf" {
		t.Errorf("unexpected docs: %+v", result.Docs)
	}
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})
	_, err := client.CheckRequest(context.Background(), "14360570", 1, 1)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || statusErr.Op != "check" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestClient_BadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})
	if _, err := client.CheckRequest(context.Background(), "1", 1, 1); !errors.Is(err, ErrBadResponse) {
		t.Errorf("expected ErrBadResponse, got %v", err)
	}
}

func TestClient_SendRequest(t *testing.T) {
	var contentType, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	data := domain.NewData("tender-1", "award-1", "14360570", domain.ItemKindAwards, "doc-1", "")
	data.CompanyName = "X"
	payload, err := BuildRequest(data, 1, fillTime)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	client := NewClient(Config{Host: server.URL})
	if err := client.SendRequest(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "application/xml" {
		t.Errorf("expected application/xml, got %s", contentType)
	}
	if !strings.Contains(body, "<HTIN>14360570</HTIN>") {
		t.Errorf("payload not sent: %s", body)
	}
}

func TestClient_SendRequestRejectsInvalid(t *testing.T) {
	client := NewClient(Config{Host: "http://127.0.0.1:1"})
	if err := client.SendRequest(context.Background(), []byte("<request/>")); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL, Timeout: 20 * time.Millisecond})
	if _, err := client.CheckRequest(context.Background(), "1", 1, 1); !errors.Is(err, ErrRequest) {
		t.Errorf("expected ErrRequest, got %v", err)
	}
}
