package advisor

import (
	"reflect"
	"testing"
)

var held = []string{"EURUSD", "XAUUSD", "US30", "GBPJPY"}

func TestExtractSymbolsSingleMention(t *testing.T) {
	got := ExtractSymbols("What about XAUUSD?", held)
	if len(got) != 1 || got[0] != "XAUUSD" {
		t.Fatalf("expected [XAUUSD], got %v", got)
	}
}

func TestExtractSymbolsCaseInsensitiveAndDeduped(t *testing.T) {
	got := ExtractSymbols("eurusd vs EURUSD vs us30, then gbpjpy.", held)
	want := []string{"EURUSD", "US30", "GBPJPY"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractSymbolsUnknownIgnored(t *testing.T) {
	if got := ExtractSymbols("Should I buy BTCUSD?", held); len(got) != 0 {
		t.Fatalf("expected no symbols, got %v", got)
	}
}

func TestExtractSymbolsNoKnownSymbols(t *testing.T) {
	if got := ExtractSymbols("EURUSD", nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestReportSymbols(t *testing.T) {
	got := ReportSymbols(sampleReport())
	want := []string{"EURUSD", "XAUUSD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
