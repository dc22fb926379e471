package store

import (
	"errors"
	"log/slog"

	"apctl/internal/model"
	"apctl/internal/view"
)

// Attach saves every data slot change to s. It returns the unsubscribe func.
func Attach(bus *view.Feed, s Store, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	var unsubs []func()
	for _, kind := range []string{KindSummary, KindWANIP, KindWAN, KindClients, KindNetworks} {
		unsubs = append(unsubs, bus.Subscribe(kind, func(ev view.Event) {
			if err := s.SaveSnapshot(ev.Type, ev.Data); err != nil {
				logger.Warn("save snapshot", "kind", ev.Type, "err", err)
			}
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Restore loads the last saved slots into v. Missing kinds are skipped.
// It returns how many slots were restored.
func Restore(s Store, v *view.View) (int, error) {
	n := 0

	var summary model.StatusSnapshot
	switch err := s.GetSnapshot(KindSummary, &summary); {
	case err == nil:
		v.SetSummary(summary)
		n++
	case !errors.Is(err, ErrNotFound):
		return n, err
	}

	var wanIP string
	switch err := s.GetSnapshot(KindWANIP, &wanIP); {
	case err == nil:
		v.SetWANIP(wanIP)
		n++
	case !errors.Is(err, ErrNotFound):
		return n, err
	}

	var wan model.WanStatus
	switch err := s.GetSnapshot(KindWAN, &wan); {
	case err == nil:
		v.SetWAN(wan)
		n++
	case !errors.Is(err, ErrNotFound):
		return n, err
	}

	var clients model.ClientsView
	switch err := s.GetSnapshot(KindClients, &clients); {
	case err == nil:
		v.SetClients(clients)
		n++
	case !errors.Is(err, ErrNotFound):
		return n, err
	}

	var networks model.ScanResult
	switch err := s.GetSnapshot(KindNetworks, &networks); {
	case err == nil:
		v.SetNetworks(networks)
		n++
	case !errors.Is(err, ErrNotFound):
		return n, err
	}
	return n, nil
}
