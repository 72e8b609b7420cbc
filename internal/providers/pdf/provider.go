package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/gstinvoice/internal/config"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provider renders layout documents to PDF bytes.
type Provider interface {
	Render(ctx context.Context, doc layout.Document) (Output, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Config *config.InvoicingConfigHolder
	Fonts  *FontLoader `optional:"true"`
}

type provider struct {
	log   *zap.Logger
	cfg   *config.InvoicingConfigHolder
	fonts *FontLoader
}

func NewProvider(p Params) Provider {
	fonts := p.Fonts
	if fonts == nil {
		fonts = NewFontLoader()
	}
	return &provider{
		log:   p.Log.Named("pdf.provider"),
		cfg:   p.Config,
		fonts: fonts,
	}
}

// Render resolves fonts, paginates and writes the document. The output is
// fully buffered; on any failure, including a cancelled context, no bytes
// are returned.
func (p *provider) Render(ctx context.Context, doc layout.Document) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	start := time.Now()
	cfg := p.cfg.Get().PDF

	fonts, err := p.fonts.Load(cfg.RegularFont, cfg.BoldFont)
	if err != nil {
		return Output{}, err
	}
	if !fonts.UTF8() {
		if err := checkCoreEncoding(doc); err != nil {
			return Output{}, err
		}
	}

	w := p.writerFor(doc, cfg.Compress)
	plan, err := layout.Paginate(doc, w.Spec())
	if err != nil {
		return Output{}, fmt.Errorf("paginate: %w", err)
	}

	out, err := w.Write(doc, plan, fonts)
	if err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	p.log.Debug("document rendered",
		zap.String("title", doc.Title),
		zap.Int("pages", out.Pages),
		zap.Int("bytes", len(out.PDF)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (p *provider) writerFor(doc layout.Document, compress bool) Writer {
	if doc.Engine == layout.EngineMaroto && doc.Watermark == "" {
		return NewMarotoWriter(compress)
	}
	return NewFPDFWriter(compress)
}
