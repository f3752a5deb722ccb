// Package ingest turns opaque inbound payloads into validated feature
// records. Malformed payloads are rejected, never fatal: the adapter logs a
// warning and the caller drops the message.
package ingest

import (
	"fmt"
	"time"

	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
)

// FeatureRecord is a validated set of the four iris measurements, ready for
// scoring. Timestamp and SampleID are optional passthrough fields; a zero
// Timestamp means the producer did not supply one.
type FeatureRecord struct {
	SepalLength float64   `json:"sepal_length"`
	SepalWidth  float64   `json:"sepal_width"`
	PetalLength float64   `json:"petal_length"`
	PetalWidth  float64   `json:"petal_width"`
	Timestamp   time.Time `json:"timestamp"`
	SampleID    int64     `json:"sample_id"`
}

// Rejection explains why a payload was dropped.
type Rejection struct {
	Reason string
	Err    error
}

func (r *Rejection) String() string {
	if r.Err != nil {
		return r.Reason + ": " + r.Err.Error()
	}
	return r.Reason
}

// inboundSample mirrors the wire format. Pointers distinguish absent fields
// from zero values so required-field validation is exact.
type inboundSample struct {
	SepalLength *float64 `json:"sepal_length"`
	SepalWidth  *float64 `json:"sepal_width"`
	PetalLength *float64 `json:"petal_length"`
	PetalWidth  *float64 `json:"petal_width"`
	Timestamp   *string  `json:"timestamp"`
	SampleID    *int64   `json:"sample_id"`
}

// Timestamp layouts accepted on the wire. Producers commonly emit naive
// ISO-8601 strings without a zone designator, so RFC 3339 alone is not enough.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Parse decodes a payload into a FeatureRecord. A non-nil Rejection means the
// payload was malformed and must be dropped; the zero FeatureRecord
// accompanies it. The four measurement values are carried over exactly as
// decoded.
func Parse(payload []byte) (FeatureRecord, *Rejection) {
	var sample inboundSample
	if err := jsoncodec.Unmarshal(payload, &sample); err != nil {
		return FeatureRecord{}, &Rejection{Reason: "undecodable payload", Err: err}
	}

	missing := missingFields(sample)
	if len(missing) > 0 {
		return FeatureRecord{}, &Rejection{Reason: fmt.Sprintf("missing required fields %v", missing)}
	}

	record := FeatureRecord{
		SepalLength: *sample.SepalLength,
		SepalWidth:  *sample.SepalWidth,
		PetalLength: *sample.PetalLength,
		PetalWidth:  *sample.PetalWidth,
	}
	if sample.SampleID != nil {
		record.SampleID = *sample.SampleID
	}
	if sample.Timestamp != nil {
		// An unparseable timestamp is treated as absent, not as a reason to
		// reject: only the four measurements are required.
		record.Timestamp = parseTimestamp(*sample.Timestamp)
	}
	return record, nil
}

func missingFields(sample inboundSample) []string {
	var missing []string
	if sample.SepalLength == nil {
		missing = append(missing, "sepal_length")
	}
	if sample.SepalWidth == nil {
		missing = append(missing, "sepal_width")
	}
	if sample.PetalLength == nil {
		missing = append(missing, "petal_length")
	}
	if sample.PetalWidth == nil {
		missing = append(missing, "petal_width")
	}
	return missing
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// Adapter wraps Parse with warning logs for rejected payloads.
type Adapter struct {
	log loggingpkg.ServiceLogger
}

// NewAdapter returns an ingestion adapter logging rejections to the provided
// logger.
func NewAdapter(log loggingpkg.ServiceLogger) *Adapter {
	if log == nil {
		panic("irisflow: ingestion adapter requires a logger")
	}
	return &Adapter{log: log}
}

// Ingest parses the payload. The boolean reports acceptance; rejected
// payloads are logged at warning level and produce no record.
func (a *Adapter) Ingest(payload []byte) (FeatureRecord, bool) {
	record, rejection := Parse(payload)
	if rejection != nil {
		a.log.Warn("dropping malformed sample", loggingpkg.LogFields{
			"reason":  rejection.String(),
			"payload": string(payload),
		})
		return FeatureRecord{}, false
	}
	return record, true
}
