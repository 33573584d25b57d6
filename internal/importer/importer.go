// Package importer turns seller uploads into listing drafts.
package importer

import (
	"io"

	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

// Format names an upload layout.
type Format string

const (
	// FormatSheet is a spreadsheet export: CSV with one listing per row.
	FormatSheet Format = "sheet"
	// FormatText is free text pasted into a chat, one "service hours price" per line.
	FormatText Format = "text"
)

type Importer interface {
	Parse(r io.Reader) ([]listing.CreateParams, error)
}
