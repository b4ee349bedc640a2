package pipeline

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/orientation-cli/internal/model"
)

// SampleRows is how many leading rows FormatReport prints.
const SampleRows = 5

// FormatReport renders the orientation distribution, the known share and the
// first few output rows as plain text.
func FormatReport(s model.Summary, rows []model.PropertyResult) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	p.Fprintf(&b, "Orientation distribution (%d properties, %d roads)\n", s.Total, s.Roads)
	for _, lc := range s.Distribution {
		p.Fprintf(&b, "  %-8s %10d  %6.2f%%\n", lc.Label, lc.Count, lc.Percent)
	}
	p.Fprintf(&b, "Known: %.2f%%  Unknown: %.2f%%\n", s.KnownPercent, s.UnknownPercent)

	if s.Imputed > 0 {
		p.Fprintf(&b, "Imputed %d of %d Unknown as %s\n", s.Imputed, s.UnknownBefore, s.Mode)
	} else {
		b.WriteString("Imputed 0\n")
	}

	if len(rows) > 0 {
		b.WriteString("\nSample:\n")
		for _, r := range rows[:min(SampleRows, len(rows))] {
			p.Fprintf(&b, "  %-40s %s\n", r.Address, r.Orientation)
		}
	}
	return b.String()
}
