package utils

import "testing"

func TestParsePageNumber(t *testing.T) {
	cases := map[string]int{
		"":    1,
		"abc": 1,
		"0":   1,
		"-5":  1,
		"1":   1,
		"2":   2,
		"42":  42,
		"1.5": 1,
	}
	for in, want := range cases {
		if got := ParsePageNumber(in); got != want {
			t.Errorf("ParsePageNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNewPage(t *testing.T) {
	cases := []struct {
		name       string
		number     int
		total      int64
		wantNumber int
		wantPages  int
	}{
		{"empty listing", 1, 0, 1, 1},
		{"single partial page", 1, 7, 1, 1},
		{"exact multiple", 1, 30, 1, 3},
		{"last partial page", 4, 39, 4, 4},
		{"clamped above", 99, 39, 4, 4},
		{"clamped below", -2, 39, 1, 4},
		{"clamped on empty", 9, 0, 1, 1},
	}
	for _, tc := range cases {
		p := NewPage(tc.number, tc.total)
		if p.Number != tc.wantNumber || p.TotalPages != tc.wantPages {
			t.Errorf("%s: NewPage(%d, %d) = page %d of %d, want page %d of %d",
				tc.name, tc.number, tc.total, p.Number, p.TotalPages, tc.wantNumber, tc.wantPages)
		}
		if p.Size != PageSize || p.TotalItems != tc.total {
			t.Errorf("%s: size/total = %d/%d", tc.name, p.Size, p.TotalItems)
		}
	}
}

func TestPageNavigation(t *testing.T) {
	first := NewPage(1, 39)
	if first.Offset() != 0 {
		t.Errorf("first page offset = %d, want 0", first.Offset())
	}
	if first.HasPrev() {
		t.Error("first page claims a previous page")
	}
	if !first.HasNext() || first.NextNumber() != 2 {
		t.Error("first page navigation to page 2 broken")
	}

	middle := NewPage(3, 39)
	if middle.Offset() != 20 {
		t.Errorf("page 3 offset = %d, want 20", middle.Offset())
	}
	if !middle.HasPrev() || middle.PrevNumber() != 2 {
		t.Error("page 3 navigation to page 2 broken")
	}

	last := NewPage(4, 39)
	if last.HasNext() {
		t.Error("last page claims a next page")
	}
	if last.Offset() != 30 {
		t.Errorf("last page offset = %d, want 30", last.Offset())
	}
}
