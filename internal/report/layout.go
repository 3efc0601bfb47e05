package report

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth   = 210.0
	Margin      = 20.0
	StartY      = 50.0
	BreakY      = 250.0
	ResumeY     = 20.0
	NameStep    = 10.0
	LineStep    = 7.0
	StatusGap   = 10.0
	FallbackGap = 20.0
	TitleY      = 20.0
	SubtitleY   = 30.0
)

// Block is the placement of one organisation on the page.
type Block struct {
	Page     int
	Y        float64
	Name     string
	Lines    []string
	Fallback bool
	// SeparatorY is where the rule under the block goes; zero for the last block.
	SeparatorY float64
}

// WrapFunc splits text into lines no wider than width.
type WrapFunc func(text string, width float64) []string

// Plan lays the digest entries out top to bottom. A block starts on a new page
// when the cursor has passed BreakY.
func Plan(d Digest, wrap WrapFunc) []Block {
	blocks := make([]Block, 0, len(d.Entries))
	page, y := 1, StartY
	for i, e := range d.Entries {
		if y > BreakY {
			page++
			y = ResumeY
		}
		b := Block{Page: page, Y: y, Name: e.Name}
		y += NameStep
		if e.HasStatus() {
			b.Lines = wrap(e.Status, PageWidth-2*Margin)
			y += float64(len(b.Lines))*LineStep + StatusGap
		} else {
			b.Lines = []string{NoStatus}
			b.Fallback = true
			y += FallbackGap
		}
		if i < len(d.Entries)-1 {
			b.SeparatorY = y - 5
		}
		blocks = append(blocks, b)
	}
	return blocks
}
