package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"apctl/internal/activity"
	"apctl/internal/api"
	"apctl/internal/model"
	"apctl/internal/view"
)

// ErrInvalidState is returned when an operation is not allowed in the
// session's current state.
var ErrInvalidState = errors.New("connect session: invalid state")

// ValidationError is a local input rejection. No request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Backend issues the connect request.
type Backend interface {
	Connect(ctx context.Context, req model.ConnectRequest) (api.ConnectResponse, error)
}

// Refresher re-reads the full status after an attempt.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Recorder persists connect attempts.
type Recorder interface {
	RecordAttempt(a model.ConnectAttempt) error
}

// Session is the connect modal. It exists logically between Open and
// Close; every Open starts from a blank input buffer.
type Session struct {
	backend   Backend
	refresher Refresher
	view      *view.View
	log       *activity.Log
	recorder  Recorder
	logger    *slog.Logger
	endpoint  string

	mu          sync.Mutex
	state       string
	generation  uint64
	ssid        string
	security    string
	password    string
	waitSeconds int
	defaultWait int
	message     string
	class       string
}

// Options configure optional collaborators.
type Options struct {
	// DefaultWait is used when the operator leaves the wait bound empty.
	DefaultWait int
	// Endpoint is shown in the activity log, e.g. http://host:8000/wan/connect.
	Endpoint string
	Recorder Recorder
	Logger   *slog.Logger
}

// NewSession creates a closed session.
func NewSession(backend Backend, refresher Refresher, v *view.View, log *activity.Log, opts Options) *Session {
	if opts.DefaultWait <= 0 {
		opts.DefaultWait = model.DefaultWaitSeconds
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		backend:     backend,
		refresher:   refresher,
		view:        v,
		log:         log,
		recorder:    opts.Recorder,
		logger:      opts.Logger.With("component", "connect"),
		endpoint:    opts.Endpoint,
		state:       model.SessionClosed,
		defaultWait: opts.DefaultWait,
	}
}

// BuildRequest trims and validates the input and applies the default wait.
func BuildRequest(ssid, password string, waitSeconds, defaultWait int) (model.ConnectRequest, error) {
	ssid = strings.TrimSpace(ssid)
	if ssid == "" {
		return model.ConnectRequest{}, &ValidationError{Field: "ssid", Reason: "required"}
	}
	if defaultWait <= 0 {
		defaultWait = model.DefaultWaitSeconds
	}
	if waitSeconds <= 0 {
		waitSeconds = defaultWait
	}
	return model.ConnectRequest{SSID: ssid, Password: password, WaitSeconds: waitSeconds}, nil
}

// Open targets a network and resets the input buffer and status message.
func (s *Session) Open(ssid, security string) error {
	s.mu.Lock()
	if s.state == model.SessionSubmitting {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.generation++
	s.state = model.SessionOpen
	s.ssid = ssid
	s.security = security
	s.password = ""
	s.waitSeconds = s.defaultWait
	s.message = ""
	s.class = ""
	s.mu.Unlock()

	s.publish()
	return nil
}

// SetSSID edits the SSID field.
func (s *Session) SetSSID(ssid string) error {
	return s.edit(func() { s.ssid = ssid })
}

// SetPassword edits the password field.
func (s *Session) SetPassword(password string) error {
	return s.edit(func() { s.password = password })
}

// SetWait edits the wait bound. Zero or negative restores the default.
func (s *Session) SetWait(seconds int) error {
	return s.edit(func() {
		if seconds <= 0 {
			seconds = s.defaultWait
		}
		s.waitSeconds = seconds
	})
}

func (s *Session) edit(fn func()) error {
	s.mu.Lock()
	if !editable(s.state) {
		s.mu.Unlock()
		return ErrInvalidState
	}
	fn()
	s.mu.Unlock()
	s.publish()
	return nil
}

func editable(state string) bool {
	return state == model.SessionOpen || state == model.SessionTransportFailed
}

// Submit validates the input, issues one connect request and interprets the
// result. Every issued request is followed by a full status refresh. Only a
// fully verified connect closes the session.
func (s *Session) Submit(ctx context.Context) (model.ConnectResult, error) {
	s.mu.Lock()
	if !editable(s.state) {
		s.mu.Unlock()
		return model.ConnectResult{}, ErrInvalidState
	}
	req, err := BuildRequest(s.ssid, s.password, s.waitSeconds, s.defaultWait)
	if err != nil {
		s.message = "SSID is required"
		s.class = model.ClassWarn
		s.mu.Unlock()
		s.publish()
		s.log.Add("Connect rejected: SSID is required")
		return model.ConnectResult{}, err
	}
	s.state = model.SessionSubmitting
	s.message = "Connecting…"
	s.class = ""
	gen := s.generation
	s.mu.Unlock()
	s.publish()

	// Cancelling ctx aborts neither the request nor the refresh after it.
	base := context.WithoutCancel(ctx)

	s.log.Add("Connect start: %s", req.SSID)
	if s.endpoint != "" {
		s.log.Add("POST %s", s.endpoint)
	}

	resp, err := s.backend.Connect(base, req)
	if err != nil {
		s.finish(model.SessionTransportFailed, "Error: "+err.Error(), model.ClassBad)
		s.log.Add("ERROR connect: %s", err.Error())
		s.record(req, model.OutcomeTransportFailed, model.ConnectChecks{}, err)
		// The backend may have applied the change before the reply was lost.
		s.refresh(base)
		return model.ConnectResult{}, err
	}

	result := Interpret(resp)
	s.log.Add("Connect result: %s • gw_ping=%s inet=%s dns=%s",
		okLabel(result.OK),
		model.FormatBool(result.Checks.GatewayPing),
		model.FormatBool(result.Checks.InternetPing),
		model.FormatBool(result.Checks.DNSResolve))

	if result.OK {
		s.finish(model.SessionSucceeded, "Connected and verified", model.ClassGood)
		s.record(req, model.OutcomeSucceeded, result.Checks, nil)
		s.refresh(base)
		s.closeIf(gen, model.SessionSucceeded)
		return result, nil
	}

	s.finish(model.SessionPartiallyFailed, "Connected but verification checks failed", model.ClassWarn)
	s.record(req, model.OutcomePartiallyFailed, result.Checks, nil)
	s.refresh(base)
	return result, nil
}

// Interpret converts the backend reply.
func Interpret(resp api.ConnectResponse) model.ConnectResult {
	result := model.ConnectResult{OK: api.Truthy(resp.OK)}
	if resp.Checks != nil {
		result.Checks = model.ConnectChecks{
			GatewayPing:  resp.Checks.GatewayPing,
			InternetPing: resp.Checks.InternetPing,
			DNSResolve:   resp.Checks.DNSResolve,
		}
	}
	return result
}

// Cancel closes the session from Open or a failed state and discards the
// input buffer.
func (s *Session) Cancel() error {
	s.mu.Lock()
	switch s.state {
	case model.SessionOpen, model.SessionTransportFailed, model.SessionPartiallyFailed:
	default:
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.closeLocked()
	s.mu.Unlock()
	s.publish()
	return nil
}

// Dismiss acknowledges a result and closes the session.
func (s *Session) Dismiss() error {
	return s.Cancel()
}

// State returns the current state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the renderable session without the password.
func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() model.SessionView {
	return model.SessionView{
		State:       s.state,
		SSID:        s.ssid,
		Security:    s.security,
		WaitSeconds: s.waitSeconds,
		Message:     s.message,
		Class:       s.class,
	}
}

func (s *Session) finish(state, message, class string) {
	s.mu.Lock()
	s.state = state
	s.message = message
	s.class = class
	s.mu.Unlock()
	s.publish()
}

// closeIf closes the session unless it was reopened meanwhile.
func (s *Session) closeIf(gen uint64, state string) {
	s.mu.Lock()
	if s.generation != gen || s.state != state {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.mu.Unlock()
	s.publish()
}

func (s *Session) closeLocked() {
	s.state = model.SessionClosed
	s.ssid = ""
	s.security = ""
	s.password = ""
	s.waitSeconds = 0
	s.message = ""
	s.class = ""
}

func (s *Session) refresh(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.RefreshAll(ctx); err != nil {
		s.log.Add("ERROR refresh: %s", err.Error())
	}
}

func (s *Session) record(req model.ConnectRequest, outcome string, checks model.ConnectChecks, err error) {
	if s.recorder == nil {
		return
	}
	attempt := model.ConnectAttempt{
		Timestamp:   time.Now().UTC(),
		SSID:        req.SSID,
		WaitSeconds: req.WaitSeconds,
		Outcome:     outcome,
		Checks:      checks,
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	if err := s.recorder.RecordAttempt(attempt); err != nil {
		s.logger.Warn("record connect attempt", "err", err)
	}
}

func (s *Session) publish() {
	if s.view == nil {
		return
	}
	s.view.SetSession(s.View())
}

func okLabel(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}
