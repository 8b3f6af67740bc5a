package method

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"isna", "isna", false},
		{"case insensitive", "ISNA", false},
		{"surrounding space", " mwl ", false},
		{"interval method", "umm-al-qura", false},
		{"unknown", "my-mosque", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Lookup(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Lookup(%q) expected error, got %+v", tt.id, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected error: %v", tt.id, err)
			}
			if m.ID == "" || m.Name == "" {
				t.Errorf("Lookup(%q) returned incomplete method: %+v", tt.id, m)
			}
		})
	}
}

func TestCatalogInvariants(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range All() {
		if err := m.Validate(); err != nil {
			t.Errorf("catalog method %s invalid: %v", m.ID, err)
		}
		if seen[m.ID] {
			t.Errorf("duplicate method id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestIshaInterval(t *testing.T) {
	uaq, err := Lookup("umm-al-qura")
	if err != nil {
		t.Fatal(err)
	}
	if !uaq.UsesIshaInterval() {
		t.Fatal("umm-al-qura should be interval based")
	}
	if got := uaq.IshaInterval(false); got != 90 {
		t.Errorf("IshaInterval(false) = %d, want 90", got)
	}
	if got := uaq.IshaInterval(true); got != 120 {
		t.Errorf("IshaInterval(true) = %d, want 120 during Ramadan", got)
	}

	isna, _ := Lookup("isna")
	if isna.UsesIshaInterval() {
		t.Error("isna should be angle based")
	}
}

func TestParseMadhab(t *testing.T) {
	tests := []struct {
		in      string
		want    Madhab
		wantErr bool
	}{
		{"shafi", Shafi, false},
		{"standard", Shafi, false},
		{"Hanafi", Hanafi, false},
		{"", Shafi, false},
		{"jafari", Shafi, true},
	}
	for _, tt := range tests {
		got, err := ParseMadhab(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMadhab(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMadhab(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMadhab(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShadowRatio(t *testing.T) {
	if Shafi.ShadowRatio() != 1 {
		t.Error("Shafi shadow ratio must be 1")
	}
	if Hanafi.ShadowRatio() != 2 {
		t.Error("Hanafi shadow ratio must be 2")
	}
}
