// Package layout describes invoice documents as blocks and a table, and
// plans how they fall onto pages. It knows nothing about PDF primitives;
// writers draw a Plan exactly as it is laid out.
package layout

// GridSize is the number of grid units across the content width.
const GridSize = 48

type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Engine selects the writer used for a document.
type Engine string

const (
	EngineFPDF   Engine = "fpdf"
	EngineMaroto Engine = "maroto"
)

// Text is one line of text. Size 0 means the page's base font size.
type Text struct {
	Value string
	Bold  bool
	Size  float64
	Align Align
}

// Panel is a vertical stack of lines. It starts at grid unit Offset and
// occupies Span units.
type Panel struct {
	Offset int
	Span   int
	Lines  []Text
	Border bool
}

type BlockKind string

const (
	BlockHeader  BlockKind = "header"
	BlockMeta    BlockKind = "meta"
	BlockParties BlockKind = "parties"
	BlockTotals  BlockKind = "totals"
	BlockNotes   BlockKind = "notes"
)

// Block is a horizontal band of panels drawn side by side.
type Block struct {
	Kind   BlockKind
	Panels []Panel
}

// Empty reports whether the block has nothing to draw.
func (b Block) Empty() bool {
	for _, p := range b.Panels {
		if len(p.Lines) > 0 {
			return false
		}
	}
	return true
}

type Column struct {
	Title string
	Span  int
	Align Align
}

// Table is the line-item table. Each row has one cell per column.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Document is an invoice ready to be paginated. Blocks are drawn in the
// order Header, Meta, Parties, Table, Totals, Notes. Footer lines and the
// watermark repeat on every page.
type Document struct {
	Title     string
	Author    string
	Engine    Engine
	Header    Block
	Meta      Block
	Parties   Block
	Table     Table
	Totals    Block
	Notes     Block
	Footer    []string
	Watermark string
}

// PageSpec is the page geometry in millimetres and the text metrics used
// to measure wrapped lines.
type PageSpec struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	FontSize     float64
	LineHeight   float64
	Padding      float64
	CharWidth    float64
}

// A4 is the default portrait page.
func A4() PageSpec {
	return PageSpec{
		Width:        210,
		Height:       297,
		MarginTop:    12,
		MarginBottom: 24,
		MarginLeft:   12,
		MarginRight:  12,
		FontSize:     7.5,
		LineHeight:   3.6,
		Padding:      1.2,
		CharWidth:    1.45,
	}
}

func (s PageSpec) ContentWidth() float64 {
	return s.Width - s.MarginLeft - s.MarginRight
}

// ContentBottom is the lowest y a row may reach.
func (s PageSpec) ContentBottom() float64 {
	return s.Height - s.MarginBottom
}

// SpanWidth converts grid units to millimetres.
func (s PageSpec) SpanWidth(span int) float64 {
	return s.ContentWidth() * float64(span) / GridSize
}

// SpanX is the left edge of a span starting at grid unit start.
func (s PageSpec) SpanX(start int) float64 {
	return s.MarginLeft + s.SpanWidth(start)
}

func (s PageSpec) scale(size float64) float64 {
	if size <= 0 || s.FontSize <= 0 {
		return 1
	}
	return size / s.FontSize
}

// TextHeight is the line height for a font size.
func (s PageSpec) TextHeight(size float64) float64 {
	return s.LineHeight * s.scale(size)
}

// MaxChars is how many characters of the given size fit in span units.
func (s PageSpec) MaxChars(span int, size float64) int {
	usable := s.SpanWidth(span) - 2*s.Padding
	n := int(usable / (s.CharWidth * s.scale(size)))
	if n < 1 {
		return 1
	}
	return n
}
