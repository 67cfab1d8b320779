package invoice

import "strings"

// ValidateDraft checks the fields required before a draft may be submitted.
// All violations accumulate into a single ordered list of human-readable
// messages; submission is blocked while any exist. A gross amount of zero
// is accepted.
func ValidateDraft(d *Draft) []string {
	var problems []string

	if d.PropertyID == "" {
		problems = append(problems, "Select the property this cost belongs to.")
	}
	if strings.TrimSpace(d.Data.SellerName) == "" {
		problems = append(problems, "Seller name is required.")
	}
	if strings.TrimSpace(d.Data.Date) == "" {
		problems = append(problems, "Issue date is required.")
	}
	if d.Data.GrossAmount < 0 {
		problems = append(problems, "Gross amount is invalid.")
	}

	return problems
}
