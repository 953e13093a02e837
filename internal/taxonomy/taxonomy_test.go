package taxonomy

import "testing"

func TestMapResolvesKnownTags(t *testing.T) {
	mapper, err := NewMapper(map[string]Label{
		"plastic_bottle": LabelRecyclable,
		"Styrofoam Cup":  LabelNonRecyclable,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mapper.Map("plastic_bottle"); got != LabelRecyclable {
		t.Fatalf("expected recyclable, got %s", got)
	}
	if got := mapper.Map("  PLASTIC_BOTTLE  "); got != LabelRecyclable {
		t.Fatalf("expected case-insensitive match, got %s", got)
	}
	if got := mapper.Map("styrofoam cup"); got != LabelNonRecyclable {
		t.Fatalf("expected non-recyclable, got %s", got)
	}
}

func TestMapDefaultsToUnknown(t *testing.T) {
	mapper, err := NewMapper(map[string]Label{"glass_jar": LabelRecyclable})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tag := range []string{"spaceship", "", "   "} {
		if got := mapper.Map(tag); got != LabelUnknown {
			t.Fatalf("tag %q: expected unknown, got %s", tag, got)
		}
	}
}

func TestNewMapperRejectsBadTables(t *testing.T) {
	if _, err := NewMapper(nil); err == nil {
		t.Fatal("expected error for empty table")
	}
	if _, err := NewMapper(map[string]Label{"  ": LabelRecyclable}); err == nil {
		t.Fatal("expected error for blank tag")
	}
	if _, err := NewMapper(map[string]Label{"can": Label("maybe")}); err == nil {
		t.Fatal("expected error for invalid label")
	}
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"recyclable", LabelRecyclable, false},
		{" Non-Recyclable ", LabelNonRecyclable, false},
		{"UNKNOWN", LabelUnknown, false},
		{"compost", LabelUnknown, true},
	}
	for _, tc := range cases {
		got, err := ParseLabel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseLabel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLabel(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLabel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
