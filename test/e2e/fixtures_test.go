package e2e

import (
	"strings"
	"testing"

	"github.com/kotae-ai/kotae/internal/extract"
)

func TestEncodeFixtureRoundTripsThroughExtractor(t *testing.T) {
	const text = "badge release printer queue"
	extractor := extract.NewExtractor()
	for _, ext := range FixtureExtensions {
		content, err := EncodeFixture(ext, text)
		if err != nil {
			t.Fatalf("EncodeFixture(%s): %v", ext, err)
		}
		got, err := extractor.ExtractBytes(content, ext)
		if err != nil {
			t.Fatalf("ExtractBytes(%s): %v", ext, err)
		}
		if !strings.Contains(got, text) {
			t.Errorf("fixture %s lost its text: %q", ext, got)
		}
	}
}
