package latex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Runner executes an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Renderer typesets the notes with pdflatex.
type Renderer struct {
	outDir string
	binary string
	runner Runner
}

func New(outDir, binary string) (*Renderer, error) {
	return NewWithRunner(outDir, binary, execRunner{})
}

func NewWithRunner(outDir, binary string, runner Runner) (*Renderer, error) {
	if binary == "" {
		binary = "pdflatex"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	return &Renderer{outDir: outDir, binary: binary, runner: runner}, nil
}

// Available reports whether the LaTeX binary is on PATH.
func Available(binary string) bool {
	if binary == "" {
		binary = "pdflatex"
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) (string, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "render latex", errors.New("document id is required"))
	}
	work, err := os.MkdirTemp("", "notescan-latex-*")
	if err != nil {
		return "", fmt.Errorf("create latex workdir: %w", err)
	}
	defer os.RemoveAll(work)

	if err := os.WriteFile(filepath.Join(work, "notes.tex"), []byte(Source(req)), 0o644); err != nil {
		return "", fmt.Errorf("write latex source: %w", err)
	}
	out, err := r.runner.Run(ctx, work, r.binary, "-interaction=nonstopmode", "-halt-on-error", "notes.tex")
	if err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", r.binary, err, tail(out, 512))
	}

	dest := filepath.Join(r.outDir, domain.ArtifactLatex.FileName(req.DocumentID))
	if err := moveFile(filepath.Join(work, "notes.pdf"), dest); err != nil {
		return "", fmt.Errorf("collect latex output: %w", err)
	}
	return dest, nil
}

// Source builds the .tex document. Paragraphs that look like equations are
// typeset in display math; everything else is escaped text.
func Source(req domain.RenderRequest) string {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n")
	b.WriteString("\\usepackage[utf8]{inputenc}\n\\usepackage[margin=1in]{geometry}\n")
	b.WriteString("\\usepackage{amsmath}\n\\usepackage{amssymb}\n")
	fmt.Fprintf(&b, "\\title{%s}\n\\date{\\today}\n", escape(req.Title))
	b.WriteString("\\begin{document}\n\\maketitle\n")

	if len(req.Metadata) > 0 {
		b.WriteString("\\begin{description}\n")
		for _, f := range req.Metadata {
			fmt.Fprintf(&b, "\\item[%s] %s\n", escape(f.Label), escape(f.Value))
		}
		b.WriteString("\\end{description}\n")
	}

	for _, para := range strings.Split(req.Text, "\n\n") {
		para = strings.TrimSpace(para)
		switch {
		case para == "":
		case isEquation(para):
			fmt.Fprintf(&b, "\\[\n%s\n\\]\n\n", toMath(para))
		default:
			b.WriteString(escape(para))
			b.WriteString("\n\n")
		}
	}
	b.WriteString("\\end{document}\n")
	return b.String()
}

var equationIndicators = []string{"=", "∫", "∑", "∂", "√", "x²", "y²"}

func isEquation(s string) bool {
	if strings.Count(s, " ") > 12 {
		return false
	}
	for _, ind := range equationIndicators {
		if strings.Contains(s, ind) {
			return true
		}
	}
	return false
}

var mathReplacer = strings.NewReplacer(
	"x²", "x^2", "y²", "y^2",
	"√", `\sqrt `, "∫", `\int `, "∑", `\sum `, "∂", `\partial `,
	"±", `\pm `, "≤", `\leq `, "≥", `\geq `, "≠", `\neq `,
	"α", `\alpha `, "β", `\beta `, "γ", `\gamma `, "θ", `\theta `, "π", `\pi `,
	"#", `\#`, "%", `\%`, "&", `\&`, "$", `\$`,
)

func toMath(s string) string {
	return mathReplacer.Replace(s)
}

var textReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`, "}", `\}`,
	"#", `\#`, "$", `\$`, "%", `\%`, "&", `\&`, "_", `\_`,
	"^", `\^{}`, "~", `\~{}`,
)

func escape(s string) string {
	return textReplacer.Replace(s)
}

func tail(out []byte, n int) string {
	s := strings.TrimSpace(string(out))
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, raw, 0o644)
}
