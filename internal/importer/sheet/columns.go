package sheet

import "strings"

// column identifies one of the fields a listing row carries.
type column int

const (
	colService column = iota
	colDuration
	colPrice
	numColumns
)

// aliases are the header captions recognised for each column, lowercased.
// Sellers export from English and Russian spreadsheet templates.
var aliases = map[column][]string{
	colService:  {"service", "сервис", "платформа"},
	colDuration: {"duration", "hours", "duration_hours", "часы", "срок", "длительность"},
	colPrice:    {"price", "price_usdt", "usdt", "цена", "стоимость"},
}

// layout maps each column to its index in a row.
type layout [numColumns]int

// positional is the layout assumed when the file has no header.
var positional = layout{colService: 0, colDuration: 1, colPrice: 2}

// matchHeader reports the layout described by row if every column has a
// recognised caption in it.
func matchHeader(row []string) (layout, bool) {
	var l layout

	for c := range numColumns {
		l[c] = -1
	}

	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))

		for c, names := range aliases {
			for _, alias := range names {
				if name == alias && l[c] == -1 {
					l[c] = i
				}
			}
		}
	}

	for c := range numColumns {
		if l[c] == -1 {
			return layout{}, false
		}
	}

	return l, true
}

func (l layout) width() int {
	return max(l[colService], l[colDuration], l[colPrice]) + 1
}
