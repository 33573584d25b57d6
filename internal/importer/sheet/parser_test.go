package sheet_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/numrent/internal/importer/sheet"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		want    []listing.CreateParams
		wantErr string
	}{
		{
			name: "SemicolonWithHeader",
			csv:  "service;duration;price\nTelegram;24;5,00\nwhatsapp;1;0,75\n",
			want: []listing.CreateParams{
				{Service: ledger.ServiceTelegram, DurationHours: 24, Price: 500},
				{Service: ledger.ServiceWhatsApp, DurationHours: 1, Price: 75},
			},
		},
		{
			name: "CommaWithoutHeader",
			csv:  "VK,4,1.50\nGmail,12,\"2,25\"\n",
			want: []listing.CreateParams{
				{Service: ledger.ServiceVK, DurationHours: 4, Price: 150},
				{Service: ledger.ServiceGmail, DurationHours: 12, Price: 225},
			},
		},
		{
			name: "ReorderedRussianHeader",
			csv:  "Цена;Сервис;Часы\n1.234,50;Uber;24ч\n",
			want: []listing.CreateParams{
				{Service: ledger.ServiceUber, DurationHours: 24, Price: 123450},
			},
		},
		{
			name: "TabsCommentsAndBlankRows",
			csv:  "# stock for monday\nAirbnb\t12h\t3\n\t\t\nInstagram\t4\t0.10\n",
			want: []listing.CreateParams{
				{Service: ledger.ServiceAirbnb, DurationHours: 12, Price: 300},
				{Service: ledger.ServiceInstagram, DurationHours: 4, Price: 10},
			},
		},
		{name: "UnknownService", csv: "service;duration;price\nTelegram;24;5\nMySpace;1;1\n", wantErr: "line 3"},
		{name: "BadDuration", csv: "Telegram;48;5\n", wantErr: "duration must be one of"},
		{name: "ZeroPrice", csv: "Telegram;24;0\n", wantErr: "must be positive"},
		{name: "MissingColumn", csv: "Telegram;24\n", wantErr: "expected 3 columns"},
		{name: "HeaderOnly", csv: "service;duration;price\n", wantErr: "no listings found"},
		{name: "Empty", csv: "", wantErr: "no listings found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sheet.NewParser().Parse(strings.NewReader(tt.csv))
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, ledger.ErrInvalidInput)
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_Windows1251Export(t *testing.T) {
	content := "Сервис;Длительность;Стоимость\nTelegram;24;5,00\nVK;1;0,50\n" +
		"# выгрузка из таблицы продавца, номера проверены и готовы к аренде\n"

	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(content))
	require.NoError(t, err)

	got, err := sheet.NewParser().Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ledger.ServiceTelegram, got[0].Service)
	assert.Equal(t, int64(50), got[1].Price)
}

func TestParser_RowLimit(t *testing.T) {
	var b strings.Builder
	for range sheet.MaxRows + 1 {
		b.WriteString("VK;1;1\n")
	}

	_, err := sheet.NewParser().Parse(strings.NewReader(b.String()))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	assert.ErrorContains(t, err, "at most")
}

func TestTextParser_Parse(t *testing.T) {
	got, err := sheet.NewTextParser().Parse(strings.NewReader("Telegram 24h 5,00\n\n  # comment\nfacebook   4 1.25\n"))
	require.NoError(t, err)
	assert.Equal(t, []listing.CreateParams{
		{Service: ledger.ServiceTelegram, DurationHours: 24, Price: 500},
		{Service: ledger.ServiceFacebook, DurationHours: 4, Price: 125},
	}, got)

	_, err = sheet.NewTextParser().Parse(strings.NewReader("Telegram 24\n"))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	assert.ErrorContains(t, err, "line 1")
}
