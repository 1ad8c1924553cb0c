package gallery

import "github.com/lehigh-university-libraries/imagegallery/internal/models"

// Columns is the number of cards per grid row
const Columns = 3

// Card is one cell of the grid
type Card struct {
	models.ImageRecord
	Selected bool
}

// Preview is the full-size overlay for the selected record
type Preview struct {
	ID    string
	Title string
	URL   string
}

// Grid is everything the gallery page needs to render
type Grid struct {
	Rows    [][]Card
	Count   int
	HasMore bool
	Preview *Preview
}

func (g Grid) Empty() bool {
	return g.Count == 0
}

// Project lays records out in rows and resolves the selected id, if any.
// An id that is not among the records selects nothing.
func Project(records []models.ImageRecord, hasMore bool, selectedID string) Grid {
	grid := Grid{
		Count:   len(records),
		HasMore: hasMore,
	}

	var row []Card
	for _, record := range records {
		card := Card{ImageRecord: record}
		if selectedID != "" && record.ID == selectedID && grid.Preview == nil {
			card.Selected = true
			grid.Preview = &Preview{ID: record.ID, Title: record.Title, URL: record.URL}
		}
		row = append(row, card)
		if len(row) == Columns {
			grid.Rows = append(grid.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}
