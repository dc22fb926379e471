package connect

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"apctl/internal/activity"
	"apctl/internal/api"
	"apctl/internal/model"
	"apctl/internal/view"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []model.ConnectRequest
	resp     api.ConnectResponse
	err      error
	// during runs inside Connect before it replies.
	during func()
}

func (f *fakeBackend) Connect(ctx context.Context, req model.ConnectRequest) (api.ConnectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.during != nil {
		f.during()
	}
	if err := ctx.Err(); err != nil {
		return api.ConnectResponse{}, err
	}
	return f.resp, f.err
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshAll(ctx context.Context) error {
	f.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.err
}

type fakeRecorder struct {
	attempts []model.ConnectAttempt
}

func (f *fakeRecorder) RecordAttempt(a model.ConnectAttempt) error {
	f.attempts = append(f.attempts, a)
	return nil
}

func boolp(b bool) *bool { return &b }

func newTestSession(b Backend, r Refresher, rec Recorder) (*Session, *view.View, *activity.Log) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	v := view.New(logger)
	log := activity.New(logger, v.Events(), 0)
	s := NewSession(b, r, v, log, Options{
		Endpoint: "http://ap.local:8000/wan/connect",
		Recorder: rec,
		Logger:   logger,
	})
	return s, v, log
}

func logContains(log *activity.Log, substr string) bool {
	for _, e := range log.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestSubmit_EmptySSIDSendsNothing(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	r := &fakeRefresher{}
	s, _, _ := newTestSession(b, r, nil)
	if err := s.Open("", ""); err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, ssid := range []string{"", "   ", "\t\n"} {
		if err := s.SetSSID(ssid); err != nil {
			t.Fatalf("SetSSID: %v", err)
		}
		_, err := s.Submit(context.Background())
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "ssid" {
			t.Fatalf("ssid=%q err=%v", ssid, err)
		}
	}
	if len(b.requests) != 0 || r.calls != 0 {
		t.Fatalf("requests=%d refreshes=%d", len(b.requests), r.calls)
	}
	if s.State() != model.SessionOpen {
		t.Fatalf("state=%s", s.State())
	}
}

func TestSubmit_VerifiedClosesAndRefreshes(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{resp: api.ConnectResponse{OK: true, Checks: &api.ConnectChecks{
		GatewayPing: boolp(true), InternetPing: boolp(true), DNSResolve: boolp(true),
	}}}
	r := &fakeRefresher{}
	rec := &fakeRecorder{}
	s, v, log := newTestSession(b, r, rec)

	_ = s.Open("  Cafe  ", "WPA2")
	_ = s.SetPassword("hunter2")
	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.OK {
		t.Fatalf("result=%+v", res)
	}
	if len(b.requests) != 1 {
		t.Fatalf("requests=%d", len(b.requests))
	}
	req := b.requests[0]
	if req.SSID != "Cafe" || req.Password != "hunter2" || req.WaitSeconds != model.DefaultWaitSeconds {
		t.Fatalf("req=%+v", req)
	}
	if r.calls != 1 {
		t.Fatalf("refreshes=%d", r.calls)
	}
	if s.State() != model.SessionClosed {
		t.Fatalf("state=%s", s.State())
	}
	if got := v.State().Session; got.State != model.SessionClosed || got.SSID != "" {
		t.Fatalf("view session=%+v", got)
	}
	if !logContains(log, "Connect start: Cafe") || !logContains(log, "POST http://ap.local:8000/wan/connect") {
		t.Fatalf("log=%v", log.Entries())
	}
	if !logContains(log, "Connect result: OK • gw_ping=true inet=true dns=true") {
		t.Fatalf("log=%v", log.Entries())
	}
	if len(rec.attempts) != 1 || rec.attempts[0].Outcome != model.OutcomeSucceeded {
		t.Fatalf("attempts=%+v", rec.attempts)
	}
}

func TestSubmit_PartialFailureStaysOpen(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{resp: api.ConnectResponse{OK: false, Checks: &api.ConnectChecks{
		GatewayPing: boolp(true), InternetPing: boolp(false),
	}}}
	r := &fakeRefresher{}
	s, _, log := newTestSession(b, r, nil)

	_ = s.Open("Cafe", "WPA2")
	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.OK {
		t.Fatalf("result=%+v", res)
	}
	if s.State() != model.SessionPartiallyFailed {
		t.Fatalf("state=%s", s.State())
	}
	if sv := s.View(); sv.Class != model.ClassWarn || sv.Message == "" {
		t.Fatalf("view=%+v", sv)
	}
	if r.calls != 1 {
		t.Fatalf("refreshes=%d", r.calls)
	}
	if !logContains(log, "Connect result: FAIL • gw_ping=true inet=false dns=undefined") {
		t.Fatalf("log=%v", log.Entries())
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resubmit err=%v", err)
	}
	if err := s.Dismiss(); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if s.State() != model.SessionClosed {
		t.Fatalf("state=%s", s.State())
	}
}

func TestSubmit_TransportFailureKeepsInputAndAllowsRetry(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{err: &api.HTTPError{Status: 502, StatusText: "502 Bad Gateway", BodyPreview: "nmcli failed"}}
	r := &fakeRefresher{}
	rec := &fakeRecorder{}
	s, _, log := newTestSession(b, r, rec)

	_ = s.Open("Cafe", "WPA2")
	_ = s.SetPassword("hunter2")
	_ = s.SetWait(45)
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if s.State() != model.SessionTransportFailed {
		t.Fatalf("state=%s", s.State())
	}
	sv := s.View()
	if sv.Class != model.ClassBad || !strings.HasPrefix(sv.Message, "Error: ") || !strings.Contains(sv.Message, "nmcli failed") {
		t.Fatalf("view=%+v", sv)
	}
	if !logContains(log, "ERROR connect:") {
		t.Fatalf("log=%v", log.Entries())
	}
	if len(rec.attempts) != 1 || rec.attempts[0].Outcome != model.OutcomeTransportFailed || rec.attempts[0].Error == "" {
		t.Fatalf("attempts=%+v", rec.attempts)
	}

	b.mu.Lock()
	b.err = nil
	b.resp = api.ConnectResponse{OK: true}
	b.mu.Unlock()
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(b.requests) != 2 {
		t.Fatalf("requests=%d", len(b.requests))
	}
	if retry := b.requests[1]; retry.Password != "hunter2" || retry.WaitSeconds != 45 {
		t.Fatalf("retry=%+v", retry)
	}
	if s.State() != model.SessionClosed {
		t.Fatalf("state=%s", s.State())
	}
}

func TestOpen_ResetsInputBuffer(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{resp: api.ConnectResponse{OK: true}}
	s, _, _ := newTestSession(b, &fakeRefresher{}, nil)

	_ = s.Open("Cafe", "WPA2")
	_ = s.SetPassword("secret")
	_ = s.SetWait(90)
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	_ = s.Open("Home", "WPA2")
	if sv := s.View(); sv.WaitSeconds != model.DefaultWaitSeconds || sv.Message != "" || sv.SSID != "Home" {
		t.Fatalf("view=%+v", sv)
	}
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req := b.requests[0]; req.Password != "" || req.WaitSeconds != model.DefaultWaitSeconds {
		t.Fatalf("req=%+v", req)
	}
}

func TestSubmit_RefreshErrorDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	s, _, log := newTestSession(&fakeBackend{resp: api.ConnectResponse{OK: "true"}}, &fakeRefresher{err: errors.New("summary: timeout")}, nil)
	_ = s.Open("Cafe", "")
	res, err := s.Submit(context.Background())
	if err != nil || !res.OK {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if s.State() != model.SessionClosed {
		t.Fatalf("state=%s", s.State())
	}
	if !logContains(log, "ERROR refresh: summary: timeout") {
		t.Fatalf("log=%v", log.Entries())
	}
}

func TestSubmit_CallerCancelDoesNotAbortAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &fakeBackend{
		resp:   api.ConnectResponse{OK: true},
		during: cancel,
	}
	r := &fakeRefresher{}
	s, _, log := newTestSession(b, r, nil)

	_ = s.Open("Cafe", "WPA2")
	res, err := s.Submit(ctx)
	if err != nil || !res.OK {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if r.calls != 1 {
		t.Fatalf("refreshes=%d", r.calls)
	}
	if logContains(log, "ERROR refresh") {
		t.Fatalf("log=%v", log.Entries())
	}
	if s.State() != model.SessionClosed {
		t.Fatalf("state=%s", s.State())
	}
}

func TestInvalidTransitions(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession(&fakeBackend{}, nil, nil)
	if err := s.Cancel(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel closed: %v", err)
	}
	if err := s.SetPassword("x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("edit closed: %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit closed: %v", err)
	}
}

func TestBuildRequest_DefaultWait(t *testing.T) {
	t.Parallel()

	req, err := BuildRequest(" Cafe ", "pw", 0, 30)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.SSID != "Cafe" || req.WaitSeconds != 30 {
		t.Fatalf("req=%+v", req)
	}
	req, _ = BuildRequest("Cafe", "", 0, 0)
	if req.WaitSeconds != model.DefaultWaitSeconds {
		t.Fatalf("wait=%d", req.WaitSeconds)
	}
}
