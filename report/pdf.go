// Package report renders a drawing, its normalized grid and the prediction
// onto a PDF page.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/contentstream/draw"
	"github.com/unidoc/unipdf/v3/creator"

	"github.com/juruen/digitpad/encoding/stroke"
	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
)

const (
	margin   = 40.0
	boxSize  = 240.0
	gutter   = 35.0
	boxesTop = 110.0
)

// Sheet is everything that goes on one page.
type Sheet struct {
	Title     string
	Recording stroke.Recording
	Grid      normalize.Grid
	Digit     int
	Available bool
}

type PdfGenerator struct {
	outputFilePath string
	sheet          Sheet
}

func CreatePdfGenerator(outputFilePath string, sheet Sheet) *PdfGenerator {
	return &PdfGenerator{outputFilePath: outputFilePath, sheet: sheet}
}

// Generate writes the sheet to the output file.
func (p *PdfGenerator) Generate() error {
	f, err := os.Create(p.outputFilePath)
	if err != nil {
		return fmt.Errorf("can't create %s: %w", p.outputFilePath, err)
	}

	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *PdfGenerator) Write(w io.Writer) error {
	c := creator.New()
	c.SetPageSize(creator.PageSizeA4)
	page := c.NewPage()
	height := c.Height()

	title := p.sheet.Title
	if title == "" {
		title = "digitpad"
	}
	if err := p.drawText(c, title, 18, margin, margin); err != nil {
		return err
	}
	if err := p.drawText(c, "Drawing", 10, margin, boxesTop-16); err != nil {
		return err
	}
	gridX := margin + boxSize + gutter
	if err := p.drawText(c, fmt.Sprintf("Normalized %dx%d", p.sheet.Grid.Size(), p.sheet.Grid.Size()), 10, gridX, boxesTop-16); err != nil {
		return err
	}

	cc := contentstream.NewContentCreator()
	frame(cc, margin, height-boxesTop-boxSize)
	p.drawStrokes(cc, margin, height-boxesTop)
	p.drawGrid(cc, gridX, height-boxesTop)
	frame(cc, gridX, height-boxesTop-boxSize)

	if err := page.AppendContentStream(string(cc.Operations().Bytes())); err != nil {
		return err
	}

	verdict := "Prediction: unavailable"
	if p.sheet.Available {
		verdict = fmt.Sprintf("Prediction: %d", p.sheet.Digit)
	}
	if err := p.drawText(c, verdict, 14, margin, boxesTop+boxSize+30); err != nil {
		return err
	}

	log.Trace.Printf("report: %d strokes, grid %d", len(p.sheet.Recording.Strokes), p.sheet.Grid.Size())
	return c.Write(w)
}

func (p *PdfGenerator) drawText(c *creator.Creator, text string, size, x, y float64) error {
	para := c.NewParagraph(text)
	para.SetFontSize(size)
	para.SetPos(x, y)
	return c.Draw(para)
}

func frame(cc *contentstream.ContentCreator, x, y float64) {
	cc.Add_q()
	cc.Add_w(0.5)
	cc.Add_RG(0.6, 0.6, 0.6)
	cc.Add_re(x, y, boxSize, boxSize)
	cc.Add_S()
	cc.Add_Q()
}

// drawStrokes scales the recording into the box whose top-left corner is
// (x, top) in PDF coordinates.
func (p *PdfGenerator) drawStrokes(cc *contentstream.ContentCreator, x, top float64) {
	rec := p.sheet.Recording
	if rec.Width == 0 || rec.Height == 0 {
		return
	}
	side := float64(rec.Width)
	if float64(rec.Height) > side {
		side = float64(rec.Height)
	}
	ratio := boxSize / side

	cc.Add_q()
	cc.Add_w(float64(rec.BrushWidth) * ratio)
	cc.Add_RG(0, 0, 0)
	for _, s := range rec.Strokes {
		if len(s.Points) == 0 {
			continue
		}
		path := draw.NewPath()
		for _, pt := range s.Points {
			path = path.AppendPoint(draw.NewPoint(x+float64(pt.X)*ratio, top-float64(pt.Y)*ratio))
		}
		if len(s.Points) == 1 {
			// a zero-length segment so a tap still shows
			pt := s.Points[0]
			path = path.AppendPoint(draw.NewPoint(x+float64(pt.X)*ratio+0.01, top-float64(pt.Y)*ratio))
		}
		draw.DrawPathWithCreator(path, cc)
		cc.Add_S()
	}
	cc.Add_Q()
}

func (p *PdfGenerator) drawGrid(cc *contentstream.ContentCreator, x, top float64) {
	g := p.sheet.Grid
	n := g.Size()
	if n == 0 {
		return
	}
	cell := boxSize / float64(n)

	cc.Add_q()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			v := float64(g.At(col, row)) / 255
			cc.Add_rg(v, v, v)
			cc.Add_re(x+float64(col)*cell, top-float64(row+1)*cell, cell, cell)
			cc.Add_f()
		}
	}
	cc.Add_Q()
}

// Generate is a shortcut for CreatePdfGenerator(...).Generate().
func Generate(outputFilePath string, sheet Sheet) error {
	return CreatePdfGenerator(outputFilePath, sheet).Generate()
}
