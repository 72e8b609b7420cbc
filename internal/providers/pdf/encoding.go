package pdf

import (
	"fmt"

	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
	"golang.org/x/text/encoding/charmap"
)

// checkCoreEncoding fails when doc holds text the core fonts cannot show.
// Core fonts are cp1252; anything outside it would print as placeholders.
func checkCoreEncoding(doc layout.Document) error {
	for _, value := range documentText(doc) {
		for _, r := range value {
			if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
				return fmt.Errorf("%w: %q needs a UTF-8 font (set pdf.regularFont and pdf.boldFont)", ErrResource, value)
			}
		}
	}
	return nil
}

func documentText(doc layout.Document) []string {
	out := []string{doc.Title, doc.Author, doc.Watermark}
	out = append(out, doc.Footer...)
	for _, b := range []layout.Block{doc.Header, doc.Meta, doc.Parties, doc.Totals, doc.Notes} {
		for _, p := range b.Panels {
			for _, line := range p.Lines {
				out = append(out, line.Value)
			}
		}
	}
	for _, c := range doc.Table.Columns {
		out = append(out, c.Title)
	}
	for _, row := range doc.Table.Rows {
		out = append(out, row...)
	}
	return out
}
