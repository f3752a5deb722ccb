package ingest

import (
	"io"
	"log/slog"
	"testing"
	"time"

	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
)

func newTestAdapter() *Adapter {
	logger := loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewAdapter(logger)
}

func TestParseValidSamplePreservesMeasurements(t *testing.T) {
	payload := []byte(`{"sepal_length":5.1,"sepal_width":3.5,"petal_length":1.4,"petal_width":0.2,"sample_id":42}`)

	record, rejection := Parse(payload)
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}

	if record.SepalLength != 5.1 || record.SepalWidth != 3.5 || record.PetalLength != 1.4 || record.PetalWidth != 0.2 {
		t.Fatalf("measurements not preserved: %+v", record)
	}
	if record.SampleID != 42 {
		t.Fatalf("SampleID = %d, want 42", record.SampleID)
	}
	if !record.Timestamp.IsZero() {
		t.Fatalf("Timestamp should be zero when absent, got %v", record.Timestamp)
	}
}

func TestParseMissingFieldRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing sepal_length", `{"sepal_width":3.5,"petal_length":1.4,"petal_width":0.2}`},
		{"missing sepal_width", `{"sepal_length":5.1,"petal_length":1.4,"petal_width":0.2}`},
		{"missing petal_length", `{"sepal_length":5.1,"sepal_width":3.5,"petal_width":0.2}`},
		{"missing petal_width", `{"sepal_length":5.1,"sepal_width":3.5,"petal_length":1.4}`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rejection := Parse([]byte(tt.payload))
			if rejection == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}

func TestParseUndecodablePayloadRejects(t *testing.T) {
	for _, payload := range []string{"", "{truncated", "not json at all", `"just a string"`} {
		if _, rejection := Parse([]byte(payload)); rejection == nil {
			t.Fatalf("expected rejection for %q", payload)
		}
	}
}

func TestParseTimestampFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2026-08-25T10:30:00Z", time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)},
		{"naive isoformat", "2026-08-25T10:30:00.123456", time.Date(2026, 8, 25, 10, 30, 0, 123456000, time.UTC)},
		{"naive no fraction", "2026-08-25T10:30:00", time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{"sepal_length":5.1,"sepal_width":3.5,"petal_length":1.4,"petal_width":0.2,"timestamp":"` + tt.raw + `"}`)
			record, rejection := Parse(payload)
			if rejection != nil {
				t.Fatalf("unexpected rejection: %s", rejection)
			}
			if !record.Timestamp.Equal(tt.want) {
				t.Fatalf("Timestamp = %v, want %v", record.Timestamp, tt.want)
			}
		})
	}
}

func TestParseUnparseableTimestampIsIgnored(t *testing.T) {
	payload := []byte(`{"sepal_length":5.1,"sepal_width":3.5,"petal_length":1.4,"petal_width":0.2,"timestamp":"yesterday"}`)

	record, rejection := Parse(payload)
	if rejection != nil {
		t.Fatalf("unexpected rejection: %s", rejection)
	}
	if !record.Timestamp.IsZero() {
		t.Fatalf("expected zero timestamp, got %v", record.Timestamp)
	}
}

func TestAdapterIngestNeverPanics(t *testing.T) {
	adapter := newTestAdapter()

	if _, ok := adapter.Ingest(nil); ok {
		t.Fatal("nil payload should be rejected")
	}
	if _, ok := adapter.Ingest([]byte(`{"sepal_length":1}`)); ok {
		t.Fatal("incomplete payload should be rejected")
	}

	record, ok := adapter.Ingest([]byte(`{"sepal_length":6.3,"sepal_width":2.9,"petal_length":5.6,"petal_width":1.8}`))
	if !ok {
		t.Fatal("valid payload should be accepted")
	}
	if record.PetalLength != 5.6 {
		t.Fatalf("PetalLength = %v", record.PetalLength)
	}
}
