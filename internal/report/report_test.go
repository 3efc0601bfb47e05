package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

func fixedWrap(lines int) WrapFunc {
	return func(text string, _ float64) []string {
		out := make([]string, lines)
		for i := range out {
			out[i] = text
		}
		return out
	}
}

func TestBuildFallsBackForMissingStatus(t *testing.T) {
	d := Build([]domain.Organisation{
		{ID: "1", Name: "Acme", CurrentStatus: "Signed"},
		{ID: "2", Name: "Globex", CurrentStatus: "  "},
	}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if d.Entries[0].StatusText() != "Signed" || d.Entries[1].StatusText() != NoStatus {
		t.Fatalf("unexpected status text: %+v", d.Entries)
	}
	if d.GeneratedLine() != "Generated on 01/06/2024" {
		t.Fatalf("unexpected generated line %q", d.GeneratedLine())
	}
	md := d.Markdown()
	if !strings.Contains(md, "## Acme") || !strings.Contains(md, "_No status provided_") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
}

func TestPlanAdvancesCursor(t *testing.T) {
	d := Digest{Entries: []Entry{{Name: "A", Status: "two lines"}, {Name: "B"}, {Name: "C", Status: "x"}}}
	blocks := Plan(d, fixedWrap(2))

	if blocks[0].Y != 50 {
		t.Fatalf("first block starts at 50, got %v", blocks[0].Y)
	}
	// 50 + 10 + 2*7 + 10
	if blocks[1].Y != 84 || !blocks[1].Fallback {
		t.Fatalf("unexpected second block %+v", blocks[1])
	}
	// 84 + 10 + 20
	if blocks[2].Y != 114 {
		t.Fatalf("unexpected third block y %v", blocks[2].Y)
	}
	if blocks[0].SeparatorY != 79 || blocks[2].SeparatorY != 0 {
		t.Fatalf("unexpected separators %v %v", blocks[0].SeparatorY, blocks[2].SeparatorY)
	}
}

func TestPlanBreaksPageAfter250(t *testing.T) {
	entries := make([]Entry, 12)
	for i := range entries {
		entries[i] = Entry{Name: "Org"}
	}
	blocks := Plan(Digest{Entries: entries}, fixedWrap(1))
	// Fallback blocks advance 30mm: 50, 80, ..., 230; the cursor then sits at 260.
	if blocks[6].Page != 1 || blocks[6].Y != 230 {
		t.Fatalf("unexpected block 6 %+v", blocks[6])
	}
	if blocks[7].Page != 2 || blocks[7].Y != 20 {
		t.Fatalf("expected page break to y=20, got %+v", blocks[7])
	}
	if blocks[8].Page != 2 || blocks[8].Y != 50 {
		t.Fatalf("unexpected block 8 %+v", blocks[8])
	}
}

func TestWritePDFProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	d := Build([]domain.Organisation{{Name: "Acme", CurrentStatus: strings.Repeat("long status ", 40)}}, time.Now())
	if err := WritePDF(&buf, d); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected pdf header")
	}
}
