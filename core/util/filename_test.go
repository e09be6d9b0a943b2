package util

import (
	"testing"
)

func TestStripSegmentName(t *testing.T) {
	s := StripSegmentName("_0.fnm")
	if s != ".fnm" {
		t.Errorf("Expected '.fnm' but was '%v'", s)
	}

	s = StripSegmentName("_0_1.liv")
	if s != "_1.liv" {
		t.Errorf("Expected '_1.liv', but was '%v'", s)
	}
}

func TestFileNameFromGeneration(t *testing.T) {
	if s := FileNameFromGeneration(SEGMENTS, "", 36); s != "segments_10" {
		t.Errorf("Expected 'segments_10', but was '%v'", s)
	}
	if s := FileNameFromGeneration("_3", "liv", 2); s != "_3_2.liv" {
		t.Errorf("Expected '_3_2.liv', but was '%v'", s)
	}
	if s := FileNameFromGeneration("_3", "liv", -1); s != "" {
		t.Errorf("Expected '', but was '%v'", s)
	}
}

func TestGenerationFromSegmentsFileName(t *testing.T) {
	cases := map[string]int64{
		"segments_10":         36,
		"pending_segments_a":  10,
		"segments":            0,
		"_0.si":               -1,
		"segments_zz":         1295,
		"segments_a-b":        -1,
	}
	for name, expected := range cases {
		if gen := GenerationFromSegmentsFileName(name); gen != expected {
			t.Errorf("%v: expected %v, but was %v", name, expected, gen)
		}
	}
}

func TestParseGeneration(t *testing.T) {
	if gen := ParseGeneration("_a_z.liv"); gen != 35 {
		t.Errorf("Expected 35, but was %v", gen)
	}
	if gen := ParseGeneration("_a.si"); gen != 0 {
		t.Errorf("Expected 0, but was %v", gen)
	}
	if !CODEC_FILE_PATTERN.MatchString("_a_z.liv") || CODEC_FILE_PATTERN.MatchString("segments_1") {
		t.Error("codec file pattern mismatch")
	}
}
