package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	SepalLength float64 `json:"sepal_length"`
	Prediction  string  `json:"prediction,omitempty"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{SepalLength: 5.1, Prediction: "setosa"}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestUnmarshalRejectsMalformedPayload(t *testing.T) {
	var out sample
	if err := Unmarshal([]byte("{not json"), &out); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sample{SepalLength: 6.3}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "sepal_length") {
		t.Fatalf("encoded output missing field: %s", buf.String())
	}

	var out sample
	if err := Decode(&buf, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.SepalLength != 6.3 {
		t.Fatalf("decoded %v, want 6.3", out.SepalLength)
	}
}
