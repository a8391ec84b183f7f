package extract

import (
	"math"
	"testing"
)

func TestProseToKind(t *testing.T) {
	cases := []struct {
		label, want string
	}{
		{"PERSON", KindPerson},
		{"GPE", KindPlace},
		{"LOC", KindPlace},
		{"FAC", KindPlace},
		{"ORG", KindTopic},
		{"EVENT", KindTopic},
		{"WORK_OF_ART", KindTopic},
		{"DATE", ""},
		{"TIME", ""},
		{"CARDINAL", ""},
		{"MONEY", ""},
		{"person", KindPerson}, // case-insensitive
	}
	for _, tc := range cases {
		if got := proseToKind(tc.label); got != tc.want {
			t.Errorf("proseToKind(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestEntitiesEmptyText(t *testing.T) {
	e := NewExtractor()
	for _, text := range []string{"", "   ", "\n\t"} {
		got := e.Entities(text)
		if got == nil {
			t.Errorf("Entities(%q) returned nil, want empty map", text)
		}
		if len(got) != 0 {
			t.Errorf("Entities(%q) = %v, want empty", text, got)
		}
	}
}

func TestEntitiesExtraction(t *testing.T) {
	e := NewExtractor()
	got := e.Entities("Had coffee with Sarah Chen in Portland. She recommended a Microsoft research paper.")

	if len(got) == 0 {
		t.Fatal("no entities extracted from entity-rich text")
	}
	for name, kind := range got {
		if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
			t.Errorf("entity name %q not lowercased", name)
		}
		switch kind {
		case KindPerson, KindPlace, KindTopic:
		default:
			t.Errorf("entity %q has unexpected kind %q", name, kind)
		}
		if noiseEntities[name] {
			t.Errorf("noise entity %q leaked through", name)
		}
		if len(name) < 2 {
			t.Errorf("single-character entity %q kept", name)
		}
	}
}

func TestOverlap(t *testing.T) {
	a := map[string]string{
		"sarah": KindPerson, "portland": KindPlace, "coffee": KindTopic,
	}
	b := map[string]string{
		"sarah": KindPerson, "coffee": KindTopic,
	}

	score, shared := Overlap(a, b)
	if shared != 2 {
		t.Errorf("shared = %d, want 2", shared)
	}
	// 2 shared / max(3, 2)
	if math.Abs(score-2.0/3) > 1e-9 {
		t.Errorf("score = %f, want %f", score, 2.0/3)
	}

	// Symmetric
	revScore, revShared := Overlap(b, a)
	if revScore != score || revShared != shared {
		t.Errorf("Overlap not symmetric: (%f, %d) vs (%f, %d)", score, shared, revScore, revShared)
	}
}

func TestOverlapDisjointAndEmpty(t *testing.T) {
	a := map[string]string{"sarah": KindPerson}
	b := map[string]string{"bikes": KindTopic}

	if score, shared := Overlap(a, b); score != 0 || shared != 0 {
		t.Errorf("disjoint overlap = (%f, %d), want (0, 0)", score, shared)
	}
	if score, shared := Overlap(a, nil); score != 0 || shared != 0 {
		t.Errorf("empty overlap = (%f, %d), want (0, 0)", score, shared)
	}
	if score, shared := Overlap(nil, nil); score != 0 || shared != 0 {
		t.Errorf("nil overlap = (%f, %d), want (0, 0)", score, shared)
	}
}

func TestOverlapIdentical(t *testing.T) {
	a := map[string]string{"sarah": KindPerson, "portland": KindPlace}
	score, shared := Overlap(a, a)
	if score != 1 || shared != 2 {
		t.Errorf("identical overlap = (%f, %d), want (1, 2)", score, shared)
	}
}
