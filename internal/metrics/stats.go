package metrics

import (
	"math"
	"sort"
	"time"

	"apctl/internal/model"
)

// Summary is the signal history of one SSID.
type Summary struct {
	SSID       string
	Security   string
	Count      int
	From       time.Time
	To         time.Time
	AvgSignal  float64
	P95Signal  int
	MinSignal  int
	MaxSignal  int
	LastSignal int
	InUse      int
}

// Since returns the samples taken at or after since, in input order.
func Since(items []model.SignalSample, since time.Time) []model.SignalSample {
	out := make([]model.SignalSample, 0, len(items))
	for _, s := range items {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out
}

// Summarize computes per-SSID statistics for samples at or after since,
// ordered by average signal, strongest first.
func Summarize(items []model.SignalSample, since time.Time) []Summary {
	groups := map[string][]model.SignalSample{}
	var order []string
	for _, s := range Since(items, since) {
		if _, ok := groups[s.SSID]; !ok {
			order = append(order, s.SSID)
		}
		groups[s.SSID] = append(groups[s.SSID], s)
	}

	out := make([]Summary, 0, len(order))
	for _, ssid := range order {
		out = append(out, summarizeOne(ssid, groups[ssid]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgSignal > out[j].AvgSignal
	})
	return out
}

func summarizeOne(ssid string, samples []model.SignalSample) Summary {
	values := make([]float64, 0, len(samples))
	var sum float64
	minSig := math.MaxInt
	maxSig := math.MinInt
	from := samples[0].Timestamp
	to := samples[0].Timestamp
	last := samples[0]
	inUse := 0

	for _, s := range samples {
		values = append(values, float64(s.Signal))
		sum += float64(s.Signal)
		if s.Signal < minSig {
			minSig = s.Signal
		}
		if s.Signal > maxSig {
			maxSig = s.Signal
		}
		if s.Timestamp.Before(from) {
			from = s.Timestamp
		}
		if !s.Timestamp.Before(to) {
			to = s.Timestamp
			last = s
		}
		if s.InUse {
			inUse++
		}
	}

	sort.Float64s(values)
	return Summary{
		SSID:       ssid,
		Security:   last.Security,
		Count:      len(samples),
		From:       from,
		To:         to,
		AvgSignal:  sum / float64(len(samples)),
		P95Signal:  int(percentile(values, 0.95)),
		MinSignal:  minSig,
		MaxSignal:  maxSig,
		LastSignal: last.Signal,
		InUse:      inUse,
	}
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
