package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"apctl/internal/model"
)

// ReadCSV loads signal samples from a CSV file.
func ReadCSV(path string) ([]model.SignalSample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readCSV(file)
}

func readCSV(r io.Reader) ([]model.SignalSample, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "timestamp" {
		start = 1
	}

	items := make([]model.SignalSample, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < len(header) {
			return nil, fmt.Errorf("invalid record at line %d", i+1)
		}
		ts, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp at line %d: %w", i+1, err)
		}
		signal, _ := strconv.Atoi(rec[3])
		inUse, _ := strconv.ParseBool(rec[4])
		items = append(items, model.SignalSample{
			Timestamp: ts,
			SSID:      rec[1],
			Security:  rec[2],
			Signal:    signal,
			InUse:     inUse,
		})
	}

	return items, nil
}
