package props

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

const exportPage = 500

var exportHeader = []string{"id", "name", "category", "status", "quantity", "location", "act", "scene", "weight_kg", "tags", "source", "notes"}

// ExportCSV writes every prop of the show. Price columns are included only when withCosts is set.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, showID int64, withCosts bool) (int, error) {
	cw := csv.NewWriter(w)
	header := append([]string{}, exportHeader...)
	if withCosts {
		header = append(header, "price", "currency")
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	written := 0
	for offset := 0; ; offset += exportPage {
		items, total, err := s.store.List(ctx, Filter{ShowID: showID, Limit: exportPage, Offset: offset})
		if err != nil {
			return written, err
		}
		for _, p := range items {
			row := []string{
				strconv.FormatInt(p.ID, 10),
				p.Name,
				p.Category,
				string(p.Status),
				strconv.Itoa(p.Quantity),
				p.Location,
				strconv.Itoa(p.Act),
				strconv.Itoa(p.Scene),
				strconv.FormatFloat(p.WeightKg, 'f', -1, 64),
				strings.Join(p.Tags, ";"),
				p.Source,
				p.Notes,
			}
			if withCosts {
				row = append(row, strconv.FormatFloat(p.Price, 'f', 2, 64), p.Currency)
			}
			if err := cw.Write(row); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || offset+len(items) >= total {
			break
		}
	}
	cw.Flush()
	return written, cw.Error()
}
