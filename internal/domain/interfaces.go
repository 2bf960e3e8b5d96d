package domain

import (
	"context"
	"io"
)

// Assembler defines the interface for composing ordered pages into one PDF
type Assembler interface {
	// Assemble writes a single PDF containing the given pages, in order, to w
	Assemble(ctx context.Context, pages []Page, w io.Writer) (AssemblyStats, error)
}

// Verifier defines the interface for checking an assembled PDF before promotion
type Verifier interface {
	// Verify confirms the file at path parses as a PDF with the expected page count
	Verify(path string, wantPages int) error
}
