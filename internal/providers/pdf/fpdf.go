package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
)

// FPDFWriter draws plans with fpdf. The watermark is drawn from the page
// header hook, so every page fpdf adds carries it.
type FPDFWriter struct {
	spec     layout.PageSpec
	compress bool
}

func NewFPDFWriter(compress bool) *FPDFWriter {
	return &FPDFWriter{spec: layout.A4(), compress: compress}
}

func (w *FPDFWriter) Spec() layout.PageSpec { return w.spec }

func (w *FPDFWriter) Write(doc layout.Document, plan layout.Plan, fonts FontSet) (Output, error) {
	s := plan.Spec
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: s.Width, Ht: s.Height},
	})
	pdf.SetCompression(w.compress)
	pdf.SetMargins(s.MarginLeft, s.MarginTop, s.MarginRight)
	pdf.SetAutoPageBreak(false, s.MarginBottom)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("gstinvoice", true)

	d := &fpdfDrawer{pdf: pdf, spec: s, family: fonts.Family, tr: func(v string) string { return v }}
	if fonts.UTF8() {
		pdf.AddUTF8FontFromBytes(fonts.Family, "", fonts.Regular)
		pdf.AddUTF8FontFromBytes(fonts.Family, "B", fonts.Bold)
	} else {
		d.family = CoreFamily
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if pdf.Err() {
		return Output{}, fmt.Errorf("%w: %s", ErrResource, pdf.Error().Error())
	}

	pdf.AliasNbPages("")
	pdf.SetHeaderFunc(func() {
		idx := pdf.PageNo() - 1
		if idx >= 0 && idx < len(plan.Pages) && plan.Pages[idx].Watermark != "" {
			d.watermark(plan.Pages[idx].Watermark)
		}
	})
	pdf.SetFooterFunc(func() { d.footer(doc.Footer) })

	for _, page := range plan.Pages {
		pdf.AddPage()
		for _, pl := range page.Placements {
			switch pl.Kind {
			case layout.PlaceBlock:
				d.block(pl)
			case layout.PlaceTableHeader:
				d.row(doc.Table.Columns, pl, true)
			case layout.PlaceRow:
				d.row(doc.Table.Columns, pl, false)
			}
		}
	}
	if pdf.Err() {
		return Output{}, fmt.Errorf("fpdf: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Output{}, fmt.Errorf("fpdf output: %w", err)
	}
	return Output{PDF: buf.Bytes(), Pages: len(plan.Pages)}, nil
}

type fpdfDrawer struct {
	pdf    *fpdf.Fpdf
	spec   layout.PageSpec
	family string
	tr     func(string) string
}

func (d *fpdfDrawer) font(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	if size <= 0 {
		size = d.spec.FontSize
	}
	d.pdf.SetFont(d.family, style, size)
}

func (d *fpdfDrawer) watermark(text string) {
	s := d.spec
	cx, cy := s.Width/2, s.Height/2

	d.font(true, 80)
	width := d.pdf.GetStringWidth(text)
	d.pdf.SetTextColor(200, 30, 30)
	d.pdf.SetAlpha(0.15, "Normal")
	d.pdf.TransformBegin()
	d.pdf.TransformRotate(45, cx, cy)
	d.pdf.Text(cx-width/2, cy+9, d.tr(text))
	d.pdf.TransformEnd()
	d.pdf.SetAlpha(1, "Normal")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *fpdfDrawer) footer(lines []string) {
	s := d.spec
	y := s.ContentBottom() + 4
	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.Line(s.MarginLeft, y-1.5, s.Width-s.MarginRight, y-1.5)

	d.font(false, 6.5)
	d.pdf.SetTextColor(90, 90, 90)
	for _, line := range lines {
		d.pdf.SetXY(s.MarginLeft, y)
		d.pdf.CellFormat(s.ContentWidth(), 3.2, d.tr(line), "", 0, "C", false, 0, "")
		y += 3.2
	}
	d.pdf.SetXY(s.MarginLeft, s.Height-s.MarginTop+2)
	d.pdf.CellFormat(s.ContentWidth(), 3.2, fmt.Sprintf("Page %d of {nb}", d.pdf.PageNo()), "", 0, "R", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *fpdfDrawer) block(pl layout.Placement) {
	s := d.spec
	for _, panel := range pl.Panels {
		x := s.SpanX(panel.Offset)
		w := s.SpanWidth(panel.Span)
		if panel.Border {
			d.pdf.SetDrawColor(170, 170, 170)
			d.pdf.Rect(x, pl.Y, w, pl.Height, "D")
		}
		y := pl.Y + s.Padding
		for _, line := range panel.Lines {
			h := s.TextHeight(line.Size)
			d.font(line.Bold, line.Size)
			d.pdf.SetXY(x+s.Padding, y)
			d.pdf.CellFormat(w-2*s.Padding, h, d.tr(line.Value), "", 0, alignStr(line.Align), false, 0, "")
			y += h
		}
	}
}

func (d *fpdfDrawer) row(cols []layout.Column, pl layout.Placement, header bool) {
	s := d.spec
	width := 0
	for _, c := range cols {
		width += c.Span
	}
	if header {
		d.pdf.SetFillColor(235, 235, 235)
		d.pdf.Rect(s.MarginLeft, pl.Y, s.SpanWidth(width), pl.Height, "F")
	}

	start := 0
	for i, col := range cols {
		x := s.SpanX(start)
		w := s.SpanWidth(col.Span)
		y := pl.Y + s.Padding
		d.font(header, 0)
		for _, line := range pl.Cells[i] {
			d.pdf.SetXY(x+s.Padding, y)
			d.pdf.CellFormat(w-2*s.Padding, s.LineHeight, d.tr(line), "", 0, alignStr(col.Align), false, 0, "")
			y += s.LineHeight
		}
		start += col.Span
	}

	d.pdf.SetDrawColor(210, 210, 210)
	bottom := pl.Y + pl.Height
	d.pdf.Line(s.MarginLeft, bottom, s.MarginLeft+s.SpanWidth(width), bottom)
}

func alignStr(a layout.Align) string {
	switch a {
	case layout.AlignCenter, layout.AlignRight:
		return string(a)
	default:
		return "L"
	}
}
