package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apctl/internal/model"
)

func TestClient_ErrorIncludesStatusAndBody(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer s.Close()

	c := NewClient(s.URL, 0)
	_, err := c.Summary(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err=%T %v", err, err)
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Fatalf("status=%d", httpErr.Status)
	}
	got := err.Error()
	if want := "400"; !strings.Contains(got, want) {
		t.Fatalf("error missing status: %q", got)
	}
	if want := `"error":"nope"`; !strings.Contains(got, want) {
		t.Fatalf("error missing body: %q", got)
	}
}

func TestClient_ErrorPreviewIsBounded(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer s.Close()

	_, err := NewClient(s.URL, 0).Clients(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err=%v", err)
	}
	if len(httpErr.BodyPreview) != PreviewLimit {
		t.Fatalf("preview len=%d", len(httpErr.BodyPreview))
	}
}

func TestClient_NonJSONIsFormatError(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer s.Close()

	_, err := NewClient(s.URL, 0).WANStatus(context.Background())
	var fmtErr *FormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("err=%T %v", err, err)
	}
	if !strings.HasPrefix(fmtErr.ContentType, "text/html") {
		t.Fatalf("content_type=%q", fmtErr.ContentType)
	}
	if fmtErr.BodyPreview != "<html>login</html>" {
		t.Fatalf("preview=%q", fmtErr.BodyPreview)
	}
}

func TestClient_DisablesCaching(t *testing.T) {
	t.Parallel()

	var cacheControl, pragma, accept string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		pragma = r.Header.Get("Pragma")
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"networks":[]}`))
	}))
	defer s.Close()

	if _, err := NewClient(s.URL, 0).Networks(context.Background()); err != nil {
		t.Fatalf("Networks: %v", err)
	}
	if !strings.Contains(cacheControl, "no-store") || pragma != "no-cache" {
		t.Fatalf("cache-control=%q pragma=%q", cacheControl, pragma)
	}
	if accept != "application/json" {
		t.Fatalf("accept=%q", accept)
	}
}

func TestClient_ConnectSendsJSONBody(t *testing.T) {
	t.Parallel()

	var got model.ConnectRequest
	var method, contentType string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"checks":{"gateway_ping":true,"internet_ping":true,"dns_resolve":false}}`))
	}))
	defer s.Close()

	resp, err := NewClient(s.URL, 0).Connect(context.Background(), model.ConnectRequest{SSID: "Home", Password: "x", WaitSeconds: 20})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if method != http.MethodPost || contentType != "application/json" {
		t.Fatalf("method=%s content_type=%q", method, contentType)
	}
	if got.SSID != "Home" || got.Password != "x" || got.WaitSeconds != 20 {
		t.Fatalf("body=%+v", got)
	}
	if !Truthy(resp.OK) || resp.Checks == nil || resp.Checks.DNSResolve == nil || *resp.Checks.DNSResolve {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestClient_InternetMissingEndpoint(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.NotFoundHandler())
	defer s.Close()

	_, ok, err := NewClient(s.URL, 0).Internet(context.Background())
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if ok {
		t.Fatalf("expected endpoint to be reported absent")
	}
}

func TestClient_InternetServerErrorPropagates(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer s.Close()

	_, _, err := NewClient(s.URL, 0).Internet(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestConnectTimeout_DefaultsWait(t *testing.T) {
	t.Parallel()

	if got, want := ConnectTimeout(0), ConnectTimeout(model.DefaultWaitSeconds); got != want {
		t.Fatalf("timeout=%s want=%s", got, want)
	}
}

func TestTruthyAndNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want bool
	}{
		{nil, false}, {false, false}, {0.0, false}, {"", false},
		{true, true}, {1.0, true}, {"active", true},
	}
	for _, tc := range cases {
		if got := Truthy(tc.in); got != tc.want {
			t.Fatalf("Truthy(%v)=%v", tc.in, got)
		}
	}
	if n, ok := Number("47"); !ok || n != 47 {
		t.Fatalf("Number(\"47\")=%v,%v", n, ok)
	}
	if _, ok := Number("garbage"); ok {
		t.Fatalf("expected garbage to fail")
	}
}
