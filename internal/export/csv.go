package export

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"

	"payoutScope/internal/canonical"
	"payoutScope/internal/model"
)

var header = []string{"address", "amountWei", "symbol", "roundId", "groupId"}

// Options controls the CSV layout. The zero value writes a comma separated
// file with a header and no metadata column.
type Options struct {
	IncludeHeader   *bool
	IncludeMetadata bool
	Delimiter       rune
}

func (o Options) includeHeader() bool {
	return o.IncludeHeader == nil || *o.IncludeHeader
}

// ToCSV renders m as CSV, one row per winner in manifest order.
func ToCSV(m model.PayoutManifest, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, m, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteCSV streams the CSV rendering of m to w.
func WriteCSV(w io.Writer, m model.PayoutManifest, opts Options) error {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	if opts.includeHeader() {
		cols := header
		if opts.IncludeMetadata {
			cols = append(append([]string(nil), header...), "metadata")
		}
		if err := cw.Write(cols); err != nil {
			return errors.Wrap(err, "write header")
		}
	}

	for i, winner := range m.Winners {
		record := []string{winner.Address, winner.Amount, m.Token.Symbol, m.RoundID, m.GroupID}
		if opts.IncludeMetadata {
			meta := ""
			if len(winner.Metadata) > 0 {
				raw, err := canonical.JSON(winner.Metadata)
				if err != nil {
					return errors.Wrapf(err, "encode metadata for winner %d", i)
				}
				meta = string(raw)
			}
			record = append(record, meta)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write winner %d", i)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
