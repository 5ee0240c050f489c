package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/rotisserie/eris"
)

func (c *Client) candidatesFromCSV(ctx context.Context) ([]civic.Record, error) {
	if c.cfg.CandidatesCSVURL == "" {
		return nil, eris.New("sheets: no candidates csv url configured")
	}
	body, err := c.http.GetBody(ctx, c.cfg.CandidatesCSVURL, c.cfg.CandidatesCSVURL)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: fetch candidates csv")
	}
	records, err := ParseCSV(body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: parse candidates csv")
	}
	return records, nil
}

// ParseCSV converts a published CSV export into records with trimmed cells.
func ParseCSV(data []byte) ([]civic.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []civic.Record{}, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return civic.RowsToRecords(rows), nil
}
