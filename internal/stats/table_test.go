package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Event", "Played", "Hz"}
	rows := [][]string{
		{"correct", "C4", "261.6"},
		{"miss", "C#4", "277.2"},
	}
	rightAlign := map[int]bool{2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Event   Played    Hz" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "correct C4     261.6" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "miss    C#4    277.2" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Name", "N"}, [][]string{{"音", "1"}}, map[int]bool{1: true})
	if lines[1] != "音   1" {
		t.Fatalf("expected width-aware padding, got %q", lines[1])
	}
}
