package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
)

var (
	headerFill = &props.Color{Red: 235, Green: 235, Blue: 235}
	ruleColor  = &props.Color{Red: 200, Green: 200, Blue: 200}
)

// marotoFooterHeight is reserved at the bottom of every page for the
// footer rows and the page number maroto draws.
const marotoFooterHeight = 12

// MarotoWriter draws plans with maroto. Each planned page becomes an
// explicit maroto page. It cannot draw watermarks; the provider never
// routes watermarked documents here.
type MarotoWriter struct {
	spec     layout.PageSpec
	compress bool
}

func NewMarotoWriter(compress bool) *MarotoWriter {
	spec := layout.A4()
	spec.MarginBottom = 21 + marotoFooterHeight
	return &MarotoWriter{spec: spec, compress: compress}
}

func (w *MarotoWriter) Spec() layout.PageSpec { return w.spec }

func (w *MarotoWriter) Write(doc layout.Document, plan layout.Plan, fonts FontSet) (Output, error) {
	s := plan.Spec
	family := "arial"

	builder := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    6.5,
		}).
		WithMaxGridSize(layout.GridSize).
		WithLeftMargin(s.MarginLeft).
		WithTopMargin(s.MarginTop).
		WithRightMargin(s.MarginRight).
		WithCompression(w.compress).
		WithTitle(doc.Title, true).
		WithAuthor(doc.Author, true).
		WithCreator("gstinvoice", true)

	if fonts.UTF8() {
		custom, err := repository.New().
			AddUTF8FontFromBytes(fonts.Family, fontstyle.Normal, fonts.Regular).
			AddUTF8FontFromBytes(fonts.Family, fontstyle.Bold, fonts.Bold).
			Load()
		if err != nil {
			return Output{}, fmt.Errorf("%w: %s", ErrResource, err.Error())
		}
		family = fonts.Family
		builder = builder.
			WithCustomFonts(custom).
			WithDefaultFont(&props.Font{Family: family, Size: s.FontSize})
	}

	m := maroto.New(builder.Build())
	mw := marotoDrawer{spec: s, family: family}

	if len(doc.Footer) > 0 {
		if err := m.RegisterFooter(mw.footer(doc.Footer)); err != nil {
			return Output{}, fmt.Errorf("maroto footer: %w", err)
		}
	}

	for _, planned := range plan.Pages {
		p := page.New()
		y := s.MarginTop
		for _, pl := range planned.Placements {
			if gap := pl.Y - y; gap > 0.01 {
				p.Add(row.New(gap))
			}
			switch pl.Kind {
			case layout.PlaceBlock:
				p.Add(mw.block(pl))
			case layout.PlaceTableHeader:
				p.Add(mw.tableRow(doc.Table.Columns, pl, true))
			case layout.PlaceRow:
				p.Add(mw.tableRow(doc.Table.Columns, pl, false))
			}
			y = pl.Y + pl.Height
		}
		m.AddPages(p)
	}

	out, err := m.Generate()
	if err != nil {
		return Output{}, fmt.Errorf("maroto generate: %w", err)
	}
	return Output{PDF: out.GetBytes(), Pages: len(plan.Pages)}, nil
}

type marotoDrawer struct {
	spec   layout.PageSpec
	family string
}

func (d marotoDrawer) text(t layout.Text, top float64, a layout.Align) core.Component {
	style := fontstyle.Normal
	if t.Bold {
		style = fontstyle.Bold
	}
	size := t.Size
	if size <= 0 {
		size = d.spec.FontSize
	}
	return text.New(t.Value, props.Text{
		Top:    top,
		Left:   d.spec.Padding,
		Right:  d.spec.Padding,
		Family: d.family,
		Size:   size,
		Style:  style,
		Align:  marotoAlign(a),
	})
}

func (d marotoDrawer) block(pl layout.Placement) core.Row {
	cols := make([]core.Col, 0, len(pl.Panels)*2)
	cursor := 0
	for _, panel := range pl.Panels {
		if panel.Offset > cursor {
			cols = append(cols, col.New(panel.Offset-cursor))
		}
		c := col.New(panel.Span)
		if panel.Border {
			c.WithStyle(&props.Cell{BorderType: border.Full, BorderColor: ruleColor})
		}
		top := d.spec.Padding
		for _, line := range panel.Lines {
			c.Add(d.text(line, top, line.Align))
			top += d.spec.TextHeight(line.Size)
		}
		cols = append(cols, c)
		cursor = panel.Offset + panel.Span
	}
	if cursor < layout.GridSize {
		cols = append(cols, col.New(layout.GridSize-cursor))
	}
	return row.New(pl.Height).Add(cols...)
}

func (d marotoDrawer) tableRow(columns []layout.Column, pl layout.Placement, header bool) core.Row {
	cols := make([]core.Col, 0, len(columns)+1)
	used := 0
	for i, column := range columns {
		c := col.New(column.Span)
		top := d.spec.Padding
		for _, line := range pl.Cells[i] {
			c.Add(d.text(layout.Text{Value: line, Bold: header}, top, column.Align))
			top += d.spec.LineHeight
		}
		cols = append(cols, c)
		used += column.Span
	}
	if used < layout.GridSize {
		cols = append(cols, col.New(layout.GridSize-used))
	}

	r := row.New(pl.Height).Add(cols...)
	if header {
		r.WithStyle(&props.Cell{BackgroundColor: headerFill})
	} else {
		r.WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: ruleColor})
	}
	return r
}

func (d marotoDrawer) footer(lines []string) core.Row {
	c := col.New(layout.GridSize)
	top := 1.0
	for _, line := range lines {
		c.Add(d.text(layout.Text{Value: line, Size: 6.5}, top, layout.AlignCenter))
		top += 3.2
	}
	return row.New(marotoFooterHeight).Add(c)
}

func marotoAlign(a layout.Align) align.Type {
	switch a {
	case layout.AlignCenter:
		return align.Center
	case layout.AlignRight:
		return align.Right
	default:
		return align.Left
	}
}
