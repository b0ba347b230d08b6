package crops

import (
	"errors"
	"testing"
)

func TestAll_FixedOrder(t *testing.T) {
	want := []string{"mango", "lemon", "chiku", "guava", "saag", "aamala", "mahuda", "neem"}

	got := All()
	if len(got) != len(want) {
		t.Fatalf("All() returned %d crops, want %d", len(got), len(want))
	}
	for i, key := range want {
		if got[i].Key != key {
			t.Errorf("All()[%d].Key = %q, want %q", i, got[i].Key, key)
		}
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0].Key = "changed"

	if All()[0].Key != "mango" {
		t.Error("mutating All() result should not affect the table")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		key       string
		wantField string
		wantTotal string
		wantErr   bool
	}{
		{"mango", "Mango (કેરી)", "Total_Mango", false},
		{"neem", "Neem (લીમડો)", "Total_Neem", false},
		{"aamala", "Aamala (આમળાં)", "Total_Aamala", false},
		{"Mango", "", "", true},
		{"banana", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c, err := Lookup(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCrop) {
					t.Errorf("Lookup(%q) error = %v, want ErrUnknownCrop", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected error: %v", tt.key, err)
			}
			if c.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", c.Field, tt.wantField)
			}
			if c.TotalField() != tt.wantTotal {
				t.Errorf("TotalField() = %q, want %q", c.TotalField(), tt.wantTotal)
			}
			if c.FieldPath() != "$"+tt.wantField {
				t.Errorf("FieldPath() = %q, want %q", c.FieldPath(), "$"+tt.wantField)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 8 {
		t.Fatalf("Keys() returned %d keys, want 8", len(keys))
	}
	for _, k := range keys {
		if _, err := Lookup(k); err != nil {
			t.Errorf("Lookup(%q) failed: %v", k, err)
		}
	}
}
