package samples

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

func TestConditionDropsAndClamps(t *testing.T) {
	raw := Sequence{
		{Actuation: 1.4, Measurement: 0.5},
		{Actuation: 0.5, Measurement: math.NaN()},
		{Actuation: math.Inf(1), Measurement: 0.4},
		{Actuation: -0.2, Measurement: 0.3},
		{Actuation: 0.6, Measurement: -1.0},
	}

	got := Condition(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples after conditioning, got %d", len(got))
	}
	if got[0].Actuation != 1.0 {
		t.Errorf("actuation should clamp to 1.0, got %f", got[0].Actuation)
	}
	if got[1].Actuation != 0.0 {
		t.Errorf("actuation should clamp to 0.0, got %f", got[1].Actuation)
	}
	for i, sm := range got {
		if sm.Index != i {
			t.Errorf("index not rewritten: got %d at position %d", sm.Index, i)
		}
	}
}

func TestRemoveSpikes(t *testing.T) {
	seq := Sequence{
		{Measurement: 0.40},
		{Measurement: 0.42},
		{Measurement: 0.95}, // spike
		{Measurement: 0.44},
	}

	got := RemoveSpikes(seq, 0.05)
	if len(got) != 3 {
		t.Fatalf("expected spike removed, got %d samples", len(got))
	}
	for _, sm := range got {
		if sm.Measurement > 0.5 {
			t.Errorf("spike survived: %f", sm.Measurement)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	seq := Sequence{
		{Actuation: 0.40, Measurement: 0.52, Index: 0},
		{Actuation: 0.55, Measurement: 0.61, Index: 1},
	}

	if err := SaveCSV(path, seq); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != len(seq) {
		t.Fatalf("expected %d samples, got %d", len(seq), len(got))
	}
	for i := range seq {
		if math.Abs(got[i].Actuation-seq[i].Actuation) > 1e-6 {
			t.Errorf("sample %d actuation mismatch", i)
		}
		if math.Abs(got[i].Measurement-seq[i].Measurement) > 1e-6 {
			t.Errorf("sample %d measurement mismatch", i)
		}
	}
}

func TestLoadCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := SaveCSV(path, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(path); err != plant.ErrNoSamples {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	seq := Sequence{
		{Actuation: 0.4, Measurement: 0.5},
		{Actuation: 0.6, Measurement: 0.7},
	}
	s := Summarize(seq)
	if s.Count != 2 {
		t.Errorf("count: got %d", s.Count)
	}
	if math.Abs(s.MeanU-0.5) > 1e-12 || math.Abs(s.MeanY-0.6) > 1e-12 {
		t.Errorf("means wrong: %+v", s)
	}
}
