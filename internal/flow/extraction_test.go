package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/veazyhq/visaflow/internal/models"
)

func TestExtractReturnsRecognizedSlots(t *testing.T) {
	mock := newScriptedGenAI(t, genAIReply{content: `{"country": "Thailand", "number_of_travelers": 2}`})
	g := NewExtractionGateway(mock)

	extracted, err := g.Extract(context.Background(), "Thailand for two of us", map[string]string{}, models.BasicSlots)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if extracted["country"] != "Thailand" {
		t.Errorf("country = %q, want Thailand", extracted["country"])
	}
	if extracted["number_of_travelers"] != "2" {
		t.Errorf("number_of_travelers = %q, want 2", extracted["number_of_travelers"])
	}
	if _, ok := extracted["purpose_of_travel"]; ok {
		t.Error("purpose_of_travel present though not mentioned")
	}
}

func TestExtractDropsInvalidValues(t *testing.T) {
	mock := newScriptedGenAI(t, genAIReply{content: `{"number_of_travelers": "a few", "travel_dates": "June sometime"}`})
	g := NewExtractionGateway(mock)

	extracted, err := g.Extract(context.Background(), "a few of us in June", nil, models.BasicSlots)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if _, ok := extracted["number_of_travelers"]; ok {
		t.Error("non-integer traveler count should be dropped")
	}
	if extracted["travel_dates"] != "June sometime" {
		t.Errorf("travel_dates = %q, want verbatim value", extracted["travel_dates"])
	}
}

func TestExtractServiceError(t *testing.T) {
	mock := newScriptedGenAI(t, genAIReply{err: errors.New("api down")})
	g := NewExtractionGateway(mock)

	if _, err := g.Extract(context.Background(), "Thailand", nil, models.BasicSlots); err == nil {
		t.Fatal("Extract should surface service errors")
	}
}

// A call that succeeded but returned an unparseable object is an empty
// result, not a failure; retry bookkeeping must not trigger on it.
func TestExtractUnparseableResultIsEmptyNotError(t *testing.T) {
	mock := newScriptedGenAI(t, genAIReply{content: "sorry, I cannot help"})
	g := NewExtractionGateway(mock)

	extracted, err := g.Extract(context.Background(), "Thailand", nil, models.BasicSlots)
	if err != nil {
		t.Fatalf("unparseable result should not be an error, got: %v", err)
	}
	if len(extracted) != 0 {
		t.Errorf("extracted = %v, want empty", extracted)
	}
}

func TestMergeFieldsFillAbsentOnly(t *testing.T) {
	dst := map[string]string{"country": "Thailand", "purpose_of_travel": ""}
	src := map[string]string{"country": "Vietnam", "purpose_of_travel": "tourism", "travel_dates": ""}

	merged := MergeFields(dst, src)

	if merged != 1 {
		t.Errorf("merged = %d, want 1", merged)
	}
	if dst["country"] != "Thailand" {
		t.Errorf("filled slot overwritten: country = %q", dst["country"])
	}
	if dst["purpose_of_travel"] != "tourism" {
		t.Errorf("absent slot not filled: purpose_of_travel = %q", dst["purpose_of_travel"])
	}
	if _, ok := dst["travel_dates"]; ok {
		t.Error("empty source value should not create a slot")
	}
}
