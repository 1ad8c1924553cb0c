package gallery

import (
	"fmt"
	"testing"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

func makeRecords(n int) []models.ImageRecord {
	out := make([]models.ImageRecord, n)
	for i := range out {
		out[i] = models.ImageRecord{ID: fmt.Sprint(i + 1), Title: fmt.Sprintf("t%d", i+1), URL: fmt.Sprintf("http://img/%d.png", i+1)}
	}
	return out
}

func TestProject_Rows(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		wantRows []int
	}{
		{"empty", 0, nil},
		{"partial row", 2, []int{2}},
		{"full row", 3, []int{3}},
		{"two rows", 7, []int{3, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := Project(makeRecords(tt.count), false, "")
			if len(grid.Rows) != len(tt.wantRows) {
				t.Fatalf("rows = %d, want %d", len(grid.Rows), len(tt.wantRows))
			}
			for i, n := range tt.wantRows {
				if len(grid.Rows[i]) != n {
					t.Errorf("row %d has %d cards, want %d", i, len(grid.Rows[i]), n)
				}
			}
			if grid.Empty() != (tt.count == 0) {
				t.Errorf("Empty() = %v", grid.Empty())
			}
		})
	}
}

func TestProject_PreservesOrder(t *testing.T) {
	grid := Project(makeRecords(5), true, "")
	var got []string
	for _, row := range grid.Rows {
		for _, card := range row {
			got = append(got, card.ID)
		}
	}
	want := []string{"1", "2", "3", "4", "5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if !grid.HasMore {
		t.Error("HasMore should be carried through")
	}
}

func TestProject_Preview(t *testing.T) {
	records := makeRecords(4)

	t.Run("selected id opens preview", func(t *testing.T) {
		grid := Project(records, false, "4")
		if grid.Preview == nil {
			t.Fatal("expected preview")
		}
		if grid.Preview.URL != "http://img/4.png" {
			t.Errorf("URL = %s", grid.Preview.URL)
		}
		if !grid.Rows[1][0].Selected {
			t.Error("card 4 should be marked selected")
		}
	})

	t.Run("no selection", func(t *testing.T) {
		if grid := Project(records, false, ""); grid.Preview != nil {
			t.Errorf("Preview = %+v, want nil", grid.Preview)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if grid := Project(records, false, "missing"); grid.Preview != nil {
			t.Errorf("Preview = %+v, want nil", grid.Preview)
		}
	})
}
