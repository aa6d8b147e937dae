// Package message produces the outbound text for a lead, either by
// placeholder substitution or through the AI opener generator.
package message

import (
	"strings"

	"github.com/sells-group/wa-outreach/internal/model"
)

// Render substitutes lead fields into template. Both {field} and {{field}}
// placeholders are recognized; unknown placeholders are left as-is and empty
// fields substitute as empty strings. Substitution is a single left-to-right
// pass, so values containing placeholder text are never expanded again.
func Render(template string, lead model.Lead) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return strings.NewReplacer(
		// Double-brace forms first so {{name}} is not consumed as {name}.
		"{{business}}", lead.BusinessName,
		"{{name}}", lead.Name,
		"{{address}}", lead.Address,
		"{{industry}}", lead.Industry,
		"{{city}}", lead.City,
		"{{email}}", lead.Email,
		"{{website}}", lead.Website,
		"{{rating}}", lead.Rating,
		"{{reviews}}", lead.Reviews,

		"{name}", lead.Name,
		"{businessName}", lead.BusinessName,
		"{phone}", lead.Phone,
		"{title}", lead.Title,
		"{industry}", lead.Industry,
		"{address}", lead.Address,
		"{website}", lead.Website,
		"{rating}", lead.Rating,
		"{reviews}", lead.Reviews,
		"{email}", lead.Email,
		"{additionalPhones}", lead.AdditionalPhones,
		"{city}", lead.City,
	).Replace(template)
}
