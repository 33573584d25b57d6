// Package sheet parses listing uploads: CSV spreadsheet exports and pasted text.
package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	enc "github.com/MrJamesThe3rd/numrent/internal/encoding"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

// MaxRows caps how many listings a single upload may publish.
const MaxRows = 500

// Parser reads CSV spreadsheets. The separator is ';', '\t' or ',' and is
// guessed from the first line; a header row is optional.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]listing.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	sep, err := sniffSeparator(br)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sep
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = sep != '\t'

	var (
		params   []listing.CreateParams
		cols     = positional
		sawFirst bool
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", ledger.ErrInvalidInput, err)
		}

		if blank(row) {
			continue
		}

		line, _ := reader.FieldPos(0)

		if !sawFirst {
			sawFirst = true

			if l, ok := matchHeader(row); ok {
				cols = l
				continue
			}
		}

		if len(params) == MaxRows {
			return nil, fmt.Errorf("%w: at most %d listings per upload", ledger.ErrInvalidInput, MaxRows)
		}

		if len(row) < cols.width() {
			return nil, fmt.Errorf("%w: line %d: expected %d columns, got %d", ledger.ErrInvalidInput, line, cols.width(), len(row))
		}

		cp, err := parseRow(row[cols[colService]], row[cols[colDuration]], row[cols[colPrice]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		params = append(params, cp)
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no listings found", ledger.ErrInvalidInput)
	}

	return params, nil
}

// parseRow converts the three raw cells of a listing.
func parseRow(service, duration, price string) (listing.CreateParams, error) {
	svc, err := ledger.ParseService(service)
	if err != nil {
		return listing.CreateParams{}, err
	}

	hours, err := parseHours(duration)
	if err != nil {
		return listing.CreateParams{}, err
	}

	cents, err := money.ParsePositive(price)
	if err != nil {
		return listing.CreateParams{}, err
	}

	return listing.CreateParams{Service: svc, DurationHours: hours, Price: cents}, nil
}

// parseHours accepts "24", "24h" and "24ч".
func parseHours(s string) (int, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = strings.TrimSuffix(clean, "h")
	clean = strings.TrimSuffix(clean, "ч")

	hours, err := strconv.Atoi(strings.TrimSpace(clean))
	if err != nil {
		return 0, fmt.Errorf("%w: malformed duration %q", ledger.ErrInvalidInput, s)
	}

	if !ledger.ValidDuration(hours) {
		return 0, fmt.Errorf("%w: duration must be one of %v hours", ledger.ErrInvalidInput, ledger.RentalHours)
	}

	return hours, nil
}

// sniffSeparator inspects the first data line without consuming it.
func sniffSeparator(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}

	for line := range bytes.Lines(head) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		switch {
		case bytes.ContainsRune(line, ';'):
			return ';', nil
		case bytes.ContainsRune(line, '\t'):
			return '\t', nil
		}

		break
	}

	return ',', nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
