package view

import (
	"log/slog"
	"os"
	"testing"

	"apctl/internal/model"
)

func newTestView() *View {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(logger)
}

func TestView_LastWriteWins(t *testing.T) {
	t.Parallel()

	v := newTestView()
	v.SetSummary(model.StatusSnapshot{SSID: "first", DNSServers: []string{"1.1.1.1"}})
	v.SetSummary(model.StatusSnapshot{SSID: "second"})

	got := v.State().Summary
	if got == nil || got.SSID != "second" {
		t.Fatalf("summary=%+v", got)
	}
	if len(got.DNSServers) != 0 {
		t.Fatalf("fields merged across snapshots: %v", got.DNSServers)
	}
}

func TestView_InitialState(t *testing.T) {
	t.Parallel()

	st := newTestView().State()
	if st.Summary != nil || st.WAN != nil || st.Clients != nil || st.Networks != nil {
		t.Fatalf("expected empty slots: %+v", st)
	}
	if st.WANIP != model.Placeholder {
		t.Fatalf("wan_ip=%q", st.WANIP)
	}
	if st.Session.State != model.SessionClosed {
		t.Fatalf("session=%q", st.Session.State)
	}
}

func TestFeed_SubscribeAndUnsubscribe(t *testing.T) {
	t.Parallel()

	v := newTestView()
	var wanEvents, allEvents int
	unsub := v.Events().Subscribe(EventWAN, func(Event) { wanEvents++ })
	v.Events().SubscribeAll(func(Event) { allEvents++ })

	v.SetWAN(model.WanStatus{State: "connected"})
	v.SetAuto(true)
	unsub()
	v.SetWAN(model.WanStatus{State: "disconnected"})

	if wanEvents != 1 {
		t.Errorf("wan events = %d, want 1", wanEvents)
	}
	if allEvents != 3 {
		t.Errorf("all events = %d, want 3", allEvents)
	}
}

func TestFeed_RecoversPanics(t *testing.T) {
	t.Parallel()

	v := newTestView()
	called := false
	v.Events().Subscribe(EventAuto, func(Event) { panic("boom") })
	v.Events().SubscribeAll(func(Event) { called = true })

	v.SetAuto(true)
	if !called {
		t.Error("handler after panicking handler was not called")
	}
}

func TestFeed_SequenceIncreases(t *testing.T) {
	t.Parallel()

	v := newTestView()
	var seqs []uint64
	v.Events().SubscribeAll(func(ev Event) { seqs = append(seqs, ev.Seq) })

	v.SetAuto(true)
	v.SetWANIP("10.0.0.2")
	v.SetAuto(false)

	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 {
		t.Fatalf("seqs=%v", seqs)
	}
}
