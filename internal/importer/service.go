package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/numrent/internal/importer/sheet"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatSheet: sheet.NewParser(),
			FormatText:  sheet.NewTextParser(),
		},
	}
}

// Import parses r according to format. An empty format is treated as a sheet.
func (s *Service) Import(format Format, r io.Reader) ([]listing.CreateParams, error) {
	if format == "" {
		format = FormatSheet
	}

	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: unknown import format %q", ledger.ErrInvalidInput, format)
	}

	return importer.Parse(r)
}
