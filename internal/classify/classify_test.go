package classify

import "testing"

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name           string
		clearance      string
		classification string
		want           bool
	}{
		{"equal levels", Secret, Secret, true},
		{"clearance above", TopSecret, Secret, true},
		{"clearance below", Confidential, Secret, false},
		{"unclassified sees unclassified", Unclassified, Unclassified, true},
		{"unclassified cannot see confidential", Unclassified, Confidential, false},
		{"top secret sees everything", TopSecret, TopSecret, true},
		{"unknown clearance ranks as floor", "MADE_UP", Confidential, false},
		{"unknown classification ranks as floor", Unclassified, "MADE_UP", true},
		{"empty strings both rank as floor", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.clearance, tt.classification); got != tt.want {
				t.Errorf("CanAccess(%q, %q) = %v, want %v",
					tt.clearance, tt.classification, got, tt.want)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	levels := []string{Unclassified, Confidential, Secret, TopSecret}
	for i := 1; i < len(levels); i++ {
		if Rank(levels[i-1]) >= Rank(levels[i]) {
			t.Errorf("expected %s to rank below %s", levels[i-1], levels[i])
		}
	}
}

func TestValid(t *testing.T) {
	for _, level := range []string{Unclassified, Confidential, Secret, TopSecret} {
		if !Valid(level) {
			t.Errorf("Valid(%q) = false, want true", level)
		}
	}
	if Valid("RESTRICTED") {
		t.Error("Valid(\"RESTRICTED\") = true, want false")
	}
	if Valid("") {
		t.Error("Valid(\"\") = true, want false")
	}
}

func TestFilter(t *testing.T) {
	type item struct {
		name  string
		level string
	}
	items := []item{
		{"open", Unclassified},
		{"mid", Secret},
		{"high", TopSecret},
	}

	got := Filter(items, Secret, func(i item) string { return i.level })
	if len(got) != 2 {
		t.Fatalf("expected 2 visible items, got %d", len(got))
	}
	if got[0].name != "open" || got[1].name != "mid" {
		t.Errorf("unexpected filter result: %+v", got)
	}

	if got := Filter(items, Unclassified, func(i item) string { return i.level }); len(got) != 1 {
		t.Errorf("expected 1 item at UNCLASSIFIED, got %d", len(got))
	}
}
