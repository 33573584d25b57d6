package sheet

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	enc "github.com/MrJamesThe3rd/numrent/internal/encoding"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

// TextParser reads whitespace separated "service hours price" lines, the way
// sellers paste stock lists into a chat.
type TextParser struct{}

func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Parse(r io.Reader) ([]listing.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	var params []listing.CreateParams

	scanner := bufio.NewScanner(utf8r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected \"service hours price\"", ledger.ErrInvalidInput, line)
		}

		if len(params) == MaxRows {
			return nil, fmt.Errorf("%w: at most %d listings per upload", ledger.ErrInvalidInput, MaxRows)
		}

		cp, err := parseRow(fields[0], fields[1], fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		params = append(params, cp)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no listings found", ledger.ErrInvalidInput)
	}

	return params, nil
}
