package validation

// Schema maps field names to rules.
type Schema map[string]Rule

// SchemaResult is the outcome of [ValidateSchema]. SanitizedData holds only
// the fields that passed.
type SchemaResult struct {
	IsValid       bool                `json:"isValid"`
	Errors        map[string][]string `json:"errors"`
	SanitizedData map[string]any      `json:"sanitizedData"`
}

// ValidateSchema applies every rule in schema to the matching key of data.
func ValidateSchema(data map[string]any, schema Schema) SchemaResult {
	res := SchemaResult{
		Errors:        map[string][]string{},
		SanitizedData: map[string]any{},
	}

	for field, rule := range schema {
		r := ValidateInput(data[field], rule)
		if !r.IsValid {
			res.Errors[field] = r.Errors
			continue
		}
		if r.SanitizedValue != nil {
			res.SanitizedData[field] = r.SanitizedValue
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// String returns the sanitized string value of field, or "".
func (r SchemaResult) String(field string) string {
	s, _ := r.SanitizedData[field].(string)
	return s
}
