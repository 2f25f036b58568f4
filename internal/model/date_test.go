package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.March, 5)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2024-03-05"` {
		t.Errorf("Marshal() = %s, want %q", b, "2024-03-05")
	}

	var got Date
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.Equal(d) {
		t.Errorf("Unmarshal() = %v, want %v", got, d)
	}
}

func TestDateUnmarshal_Invalid(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-13-40"`), &d); err == nil {
		t.Error("Unmarshal() should reject an impossible date")
	}
	if err := json.Unmarshal([]byte(`20240305`), &d); err == nil {
		t.Error("Unmarshal() should reject a non-string date")
	}
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"string", "2024-04-01", "2024-04-01"},
		{"bytes", []byte("2023-12-31"), "2023-12-31"},
		{"time", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), "2024-01-02"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if d.String() != tt.want {
				t.Errorf("Scan() = %q, want %q", d.String(), tt.want)
			}
		})
	}
}

func TestProfileUpdate_ApplyCopiesGallery(t *testing.T) {
	p := &Profile{ID: "id-1", Handle: "alice"}
	u := ProfileUpdate{Handle: "bob", Name: "Bob", Gallery: []string{"a", "b"}}

	u.Apply(p)
	u.Gallery[0] = "changed"

	if p.Handle != "bob" || p.Name != "Bob" {
		t.Errorf("Apply() did not copy fields: %+v", p)
	}
	if p.Gallery[0] != "a" {
		t.Error("Apply() shares the gallery slice with the update")
	}
	if p.ID != "id-1" {
		t.Error("Apply() must not touch the ID")
	}
}
