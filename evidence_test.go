package server

import "testing"

func TestEvidenceVisibleFrom(t *testing.T) {
	cases := []struct {
		name       string
		pos        string
		viewerPos  string
		privileged bool
		want       bool
	}{
		{"empty pos is public", "", "wit", false, true},
		{"all is public", EvidencePosAll, "def", false, true},
		{"hidden invisible to normals", EvidencePosHidden, "wit", false, false},
		{"hidden visible to privileged", EvidencePosHidden, "wit", true, true},
		{"pos match", "wit", "wit", false, true},
		{"pos match ignores case", "Wit", "wit", false, true},
		{"pos mismatch", "def", "wit", false, false},
		{"privileged sees everything", "def", "wit", true, true},
	}
	for _, tc := range cases {
		evi := &Evidence{Name: "Vase", Pos: tc.pos}
		if got := evi.visibleFrom(tc.viewerPos, tc.privileged); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResolveEvidence(t *testing.T) {
	items := []*Evidence{
		{Name: "Vase", Pos: "wit"},
		{Name: "Knife", Pos: EvidencePosHidden},
		{Name: "Photo"},
	}

	if idx, ok := resolveEvidence(items, "vase", "wit", false); !ok || idx != 0 {
		t.Fatalf("name lookup should be case-insensitive, got %d %v", idx, ok)
	}
	if _, ok := resolveEvidence(items, "Vase", "def", false); ok {
		t.Fatalf("item at another position should not resolve")
	}
	if _, ok := resolveEvidence(items, "Knife", "wit", false); ok {
		t.Fatalf("hidden stash should not resolve for normals")
	}
	if idx, ok := resolveEvidence(items, "Knife", "wit", true); !ok || idx != 1 {
		t.Fatalf("privileged viewer should resolve the stash, got %d %v", idx, ok)
	}
	if idx, ok := resolveEvidence(items, "2", "wit", false); !ok || idx != 2 {
		t.Fatalf("index specifier should resolve, got %d %v", idx, ok)
	}
	if _, ok := resolveEvidence(items, "Gavel", "wit", true); ok {
		t.Fatalf("unknown name should not resolve")
	}
}
