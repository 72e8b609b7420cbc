package layout

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPageSpec = errors.New("layout_invalid_page_spec")
	ErrInvalidTable    = errors.New("layout_invalid_table")
	ErrRowTooTall      = errors.New("layout_row_too_tall")
	ErrBlockTooTall    = errors.New("layout_block_too_tall")
)

// BlockGap is the vertical space left after every block.
const BlockGap = 3.0

type PlacementKind string

const (
	PlaceBlock       PlacementKind = "block"
	PlaceTableHeader PlacementKind = "table_header"
	PlaceRow         PlacementKind = "row"
)

// PlacedPanel is a panel with its lines already wrapped to its width.
type PlacedPanel struct {
	Offset int
	Span   int
	Border bool
	Lines  []Text
}

// Placement is one thing drawn on a page at a fixed y.
type Placement struct {
	Kind   PlacementKind
	Y      float64
	Height float64
	Block  BlockKind
	Panels []PlacedPanel
	// Row is the index into Table.Rows for PlaceRow.
	Row int
	// Cells holds the wrapped lines of each column for rows and the header.
	Cells [][]string
}

type Page struct {
	Number      int
	Placements  []Placement
	TableHeader bool
	Watermark   string
}

type Plan struct {
	Spec  PageSpec
	Pages []Page
}

// PageCount returns the number of planned pages.
func (p Plan) PageCount() int { return len(p.Pages) }

// RowOrder lists the table row indexes in the order they are drawn.
func (p Plan) RowOrder() []int {
	var rows []int
	for _, page := range p.Pages {
		for _, pl := range page.Placements {
			if pl.Kind == PlaceRow {
				rows = append(rows, pl.Row)
			}
		}
	}
	return rows
}

type state int

const (
	statePageOpen state = iota
	statePageBreak
	statePageClosed
)

type paginator struct {
	spec    PageSpec
	doc     Document
	plan    Plan
	page    Page
	state   state
	y       float64
	inTable bool
	header  Placement
}

// Paginate lays the document out on pages. Rows are emitted while they fit;
// a row that would cross the bottom margin breaks the page, the table
// header is redrawn on the new page and emission continues, so every row
// lands on exactly one page.
func Paginate(doc Document, spec PageSpec) (Plan, error) {
	if err := validateSpec(spec); err != nil {
		return Plan{}, err
	}
	if err := validateTable(doc.Table); err != nil {
		return Plan{}, err
	}

	p := &paginator{spec: spec, doc: doc, plan: Plan{Spec: spec}}
	p.open()

	for _, b := range []Block{doc.Header, doc.Meta, doc.Parties} {
		if err := p.block(b); err != nil {
			return Plan{}, err
		}
	}
	if len(doc.Table.Columns) > 0 {
		if err := p.table(); err != nil {
			return Plan{}, err
		}
	}
	for _, b := range []Block{doc.Totals, doc.Notes} {
		if err := p.block(b); err != nil {
			return Plan{}, err
		}
	}

	p.close()
	return p.plan, nil
}

func validateSpec(s PageSpec) error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: page size", ErrInvalidPageSpec)
	case s.ContentWidth() <= 0 || s.ContentBottom() <= s.MarginTop:
		return fmt.Errorf("%w: margins leave no content area", ErrInvalidPageSpec)
	case s.LineHeight <= 0 || s.CharWidth <= 0:
		return fmt.Errorf("%w: text metrics", ErrInvalidPageSpec)
	}
	return nil
}

func validateTable(t Table) error {
	if len(t.Columns) == 0 {
		if len(t.Rows) > 0 {
			return fmt.Errorf("%w: rows without columns", ErrInvalidTable)
		}
		return nil
	}
	total := 0
	for _, c := range t.Columns {
		if c.Span <= 0 {
			return fmt.Errorf("%w: column %q has no width", ErrInvalidTable, c.Title)
		}
		total += c.Span
	}
	if total > GridSize {
		return fmt.Errorf("%w: columns span %d of %d units", ErrInvalidTable, total, GridSize)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells for %d columns", ErrInvalidTable, i, len(row), len(t.Columns))
		}
	}
	return nil
}

func (p *paginator) capacity() float64 {
	return p.spec.ContentBottom() - p.spec.MarginTop
}

func (p *paginator) fits(h float64) bool {
	return p.y+h <= p.spec.ContentBottom()
}

func (p *paginator) open() {
	p.page = Page{Number: len(p.plan.Pages) + 1, Watermark: p.doc.Watermark}
	p.y = p.spec.MarginTop
	p.state = statePageOpen
}

func (p *paginator) close() {
	if p.state == statePageClosed {
		return
	}
	p.plan.Pages = append(p.plan.Pages, p.page)
	p.state = statePageClosed
}

// pageBreak closes the current page and opens the next one, redrawing the
// table header when a table is in progress.
func (p *paginator) pageBreak() {
	p.state = statePageBreak
	p.close()
	p.open()
	if p.inTable {
		p.place(p.header, 0)
		p.page.TableHeader = true
	}
}

func (p *paginator) place(pl Placement, gap float64) {
	pl.Y = p.y
	p.page.Placements = append(p.page.Placements, pl)
	p.y += pl.Height + gap
}

func (p *paginator) block(b Block) error {
	if b.Empty() {
		return nil
	}
	pl := p.measureBlock(b)
	if pl.Height > p.capacity() {
		return fmt.Errorf("%w: %s needs %.1fmm", ErrBlockTooTall, b.Kind, pl.Height)
	}
	if !p.fits(pl.Height) {
		p.pageBreak()
	}
	p.place(pl, BlockGap)
	return nil
}

func (p *paginator) table() error {
	t := p.doc.Table
	p.header = p.measureRow(t.Columns, titles(t.Columns))
	p.header.Kind = PlaceTableHeader

	rows := make([]Placement, len(t.Rows))
	for i, cells := range t.Rows {
		pl := p.measureRow(t.Columns, cells)
		pl.Kind = PlaceRow
		pl.Row = i
		if pl.Height+p.header.Height > p.capacity() {
			return fmt.Errorf("%w: row %d needs %.1fmm", ErrRowTooTall, i, pl.Height)
		}
		rows[i] = pl
	}

	first := p.header.Height
	if len(rows) > 0 {
		first += rows[0].Height
	}
	if !p.fits(first) {
		p.pageBreak()
	}
	p.inTable = true
	p.place(p.header, 0)
	p.page.TableHeader = true

	for _, row := range rows {
		if !p.fits(row.Height) {
			p.pageBreak()
		}
		p.place(row, 0)
	}
	p.inTable = false
	p.y += BlockGap
	return nil
}

func titles(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Title
	}
	return out
}

func (p *paginator) measureRow(cols []Column, cells []string) Placement {
	pl := Placement{Cells: make([][]string, len(cols))}
	maxLines := 1
	for i, col := range cols {
		lines := Wrap(cells[i], p.spec.MaxChars(col.Span, 0))
		pl.Cells[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	pl.Height = float64(maxLines)*p.spec.LineHeight + 2*p.spec.Padding
	return pl
}

func (p *paginator) measureBlock(b Block) Placement {
	pl := Placement{Kind: PlaceBlock, Block: b.Kind}
	for _, panel := range b.Panels {
		placed := PlacedPanel{Offset: panel.Offset, Span: panel.Span, Border: panel.Border}
		h := 2 * p.spec.Padding
		for _, line := range panel.Lines {
			for _, wrapped := range Wrap(line.Value, p.spec.MaxChars(panel.Span, line.Size)) {
				t := line
				t.Value = wrapped
				placed.Lines = append(placed.Lines, t)
				h += p.spec.TextHeight(line.Size)
			}
		}
		pl.Panels = append(pl.Panels, placed)
		if h > pl.Height {
			pl.Height = h
		}
	}
	return pl
}
