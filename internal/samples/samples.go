// Package samples holds conditioned (actuation, measurement) sequences
// used by the identification engine. Loading assumes outlier removal and
// unit conversion already happened upstream; only basic domain clamping
// and non-finite rejection are applied here.
package samples

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

type Sequence []plant.Sample

func (s Sequence) Actuations() []float64 {
	out := make([]float64, len(s))
	for i, sm := range s {
		out[i] = sm.Actuation
	}
	return out
}

func (s Sequence) Measurements() []float64 {
	out := make([]float64, len(s))
	for i, sm := range s {
		out[i] = sm.Measurement
	}
	return out
}

// Condition clamps actuation into [0, 1] and drops rows with non-finite
// or negative measurements. Indices are rewritten to the conditioned
// order so downstream consumers see a dense time-ordered sequence.
func Condition(raw Sequence) Sequence {
	out := make(Sequence, 0, len(raw))
	for _, sm := range raw {
		if math.IsNaN(sm.Actuation) || math.IsInf(sm.Actuation, 0) {
			continue
		}
		if math.IsNaN(sm.Measurement) || math.IsInf(sm.Measurement, 0) || sm.Measurement < 0 {
			continue
		}
		sm.Actuation = plant.Clamp(sm.Actuation, 0, 1)
		sm.Index = len(out)
		out = append(out, sm)
	}
	return out
}

// RemoveSpikes drops rows whose measurement jumps more than maxDelta
// from the last kept row. The first row is always kept.
func RemoveSpikes(seq Sequence, maxDelta float64) Sequence {
	if len(seq) == 0 {
		return seq
	}
	out := make(Sequence, 0, len(seq))
	out = append(out, seq[0])
	for _, sm := range seq[1:] {
		if math.Abs(sm.Measurement-out[len(out)-1].Measurement) <= maxDelta {
			sm.Index = len(out)
			out = append(out, sm)
		}
	}
	return out
}

// LoadCSV reads a two-column actuation,measurement file. A non-numeric
// first row is treated as a header and skipped.
func LoadCSV(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("samples: reading %s: %w", path, err)
	}

	seq := make(Sequence, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("samples: row %d has %d columns, want 2", i, len(rec))
		}
		u, errU := strconv.ParseFloat(rec[0], 64)
		y, errY := strconv.ParseFloat(rec[1], 64)
		if errU != nil || errY != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("samples: row %d is not numeric: %v", i, rec)
		}
		seq = append(seq, plant.Sample{Actuation: u, Measurement: y, Index: len(seq)})
	}

	if len(seq) == 0 {
		return nil, plant.ErrNoSamples
	}
	return seq, nil
}

// SaveCSV writes the sequence in the same two-column layout LoadCSV reads.
func SaveCSV(path string, seq Sequence) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"actuation", "measurement"}); err != nil {
		return err
	}
	for _, sm := range seq {
		rec := []string{
			strconv.FormatFloat(sm.Actuation, 'f', 6, 64),
			strconv.FormatFloat(sm.Measurement, 'f', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Summary reports basic statistics of the measurement channel.
type Summary struct {
	Count   int
	MeanU   float64
	MeanY   float64
	StdDevY float64
}

func Summarize(seq Sequence) Summary {
	if len(seq) == 0 {
		return Summary{}
	}
	ys := seq.Measurements()
	return Summary{
		Count:   len(seq),
		MeanU:   stat.Mean(seq.Actuations(), nil),
		MeanY:   stat.Mean(ys, nil),
		StdDevY: stat.StdDev(ys, nil),
	}
}
