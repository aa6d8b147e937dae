package leads

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wa-outreach/internal/model"
)

var exportHeader = []string{
	"name", "phone", "businessName", "title", "rating",
	"reviews", "industry", "address", "website", "googleMapsLink",
}

// WriteCSV writes leads with a fixed header. Every value is quoted.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	var b strings.Builder
	b.WriteString(strings.Join(exportHeader, ","))

	for _, l := range leads {
		values := []string{
			l.Name, l.Phone, l.BusinessName, l.Title, l.Rating,
			l.Reviews, l.Industry, l.Address, l.Website, l.GoogleMapsLink,
		}
		b.WriteByte('\n')
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
		}
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "leads: write csv")
}
