package domain

import (
	"fmt"
	"strings"
)

type ArtifactType string

const (
	ArtifactPDF    ArtifactType = "pdf"
	ArtifactText   ArtifactType = "text"
	ArtifactLatex  ArtifactType = "latex"
	ArtifactResult ArtifactType = "result"
)

func ParseArtifactType(raw string) (ArtifactType, error) {
	switch t := ArtifactType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ArtifactPDF, ArtifactText, ArtifactLatex, ArtifactResult:
		return t, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse artifact type", fmt.Errorf("unknown file type %q", raw))
	}
}

// FileName is the on-disk name of the artifact for a document.
func (t ArtifactType) FileName(documentID string) string {
	switch t {
	case ArtifactPDF:
		return documentID + ".pdf"
	case ArtifactText:
		return documentID + "_ocr.txt"
	case ArtifactLatex:
		return documentID + "_latex.pdf"
	case ArtifactResult:
		return documentID + "_result.json"
	default:
		return ""
	}
}

func (t ArtifactType) ContentType() string {
	switch t {
	case ArtifactPDF, ArtifactLatex:
		return "application/pdf"
	case ArtifactText:
		return "text/plain; charset=utf-8"
	case ArtifactResult:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
