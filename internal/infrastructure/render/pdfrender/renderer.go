package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/kirillkom/notescan/internal/core/domain"
)

const (
	bodyFont = "Arial"
	bodySize = 10.0
	lineH    = 5.0
)

// Renderer lays out the digitized notes as an A4 PDF: title, a metadata
// block, then the text parsed as markdown so headings and lists survive.
type Renderer struct {
	outDir string
	md     goldmark.Markdown
}

func New(outDir string) (*Renderer, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	return &Renderer{
		outDir: outDir,
		md:     goldmark.New(goldmark.WithExtensions(extension.Strikethrough)),
	}, nil
}

func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) (string, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "render pdf", errors.New("document id is required"))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(req.Title, true)
	pdf.SetCreator("notescan", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(bodyFont, "B", 16)
	pdf.MultiCell(0, 8, tr(req.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(bodyFont, "", 9)
	pdf.SetTextColor(90, 90, 90)
	for _, field := range req.Metadata {
		pdf.CellFormat(40, lineH, tr(field.Label+":"), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, lineH, tr(field.Value), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)
	y := pdf.GetY()
	pdf.Line(15, y, 195, y)
	pdf.Ln(4)

	source := []byte(req.Text)
	w := &writer{pdf: pdf, source: source, tr: tr}
	w.setFont()
	if err := ast.Walk(r.md.Parser().Parse(text.NewReader(source)), w.walk); err != nil {
		return "", fmt.Errorf("layout pdf: %w", err)
	}

	path := filepath.Join(r.outDir, domain.ArtifactPDF.FileName(req.DocumentID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

type writer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (w *writer) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(bodyFont, style, bodySize)
}

func (w *writer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(3)
			w.pdf.SetFont(bodyFont, "B", max(14-float64(node.Level), 11))
		} else {
			w.pdf.Ln(7)
			w.setFont()
		}
	case *ast.Paragraph:
		if !entering && w.listLevel == 0 {
			w.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(lineH, w.tr(string(node.Segment.Value(w.source))))
			if node.HardLineBreak() {
				w.pdf.Ln(lineH)
			} else if node.SoftLineBreak() {
				w.pdf.Write(lineH, " ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()
	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", bodySize)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					w.pdf.Write(lineH, w.tr(string(t.Segment.Value(w.source))))
				}
			}
			w.setFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			w.listLevel++
		} else {
			w.listLevel--
			w.pdf.Ln(lineH + 2)
		}
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(lineH)
			w.pdf.SetX(15 + float64(w.listLevel)*5)
			w.pdf.Write(lineH, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			y := w.pdf.GetY() + 2
			w.pdf.Line(15, y, 195, y)
			w.pdf.Ln(4)
		}
	}
	return ast.WalkContinue, nil
}

func (w *writer) codeBlock(lines *text.Segments) {
	w.pdf.SetFont("Courier", "", 9)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.pdf.MultiCell(0, lineH, w.tr(strings.TrimRight(string(seg.Value(w.source)), "\n")), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.setFont()
	w.pdf.Ln(2)
}
