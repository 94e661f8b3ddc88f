package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputRequired(t *testing.T) {
	for _, v := range []any{nil, ""} {
		r := ValidateInput(v, Rule{Required: true, Type: TypeString, MinLength: 3})
		assert.False(t, r.IsValid)
		assert.Equal(t, []string{"This field is required"}, r.Errors)
		assert.Nil(t, r.SanitizedValue)
	}

	r := ValidateInput(nil, Rule{Type: TypeEmail})
	assert.True(t, r.IsValid)
	assert.Empty(t, r.Errors)
}

func TestValidateInputSanitizesScript(t *testing.T) {
	r := ValidateInput("<script>", Rule{Type: TypeString, Sanitize: true})
	require.True(t, r.IsValid)
	s, ok := r.SanitizedValue.(string)
	require.True(t, ok)
	assert.NotContains(t, s, "<")
	assert.NotContains(t, s, ">")
	assert.Equal(t, "&lt;script&gt;", s)
}

func TestSanitizeStringOrder(t *testing.T) {
	assert.Equal(t, "&amp;lt; &quot;a&quot; &#x27;b&#x27; &#x2F;c", SanitizeString(`  &lt; "a" 'b' /c  `))
}

func TestValidateInputErrorsAreCumulative(t *testing.T) {
	r := ValidateInput("ab1", Rule{Type: TypeString, MinLength: 5, Pattern: namePattern, Allowed: []any{"x"}})
	assert.False(t, r.IsValid)
	assert.Equal(t, []string{
		"Must be at least 5 characters",
		"Invalid format",
		"Must be one of: x",
	}, r.Errors)
	assert.Nil(t, r.SanitizedValue)
}

func TestValidateInputTypes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rule  Rule
		valid bool
		want  any
		err   string
	}{
		{name: "string wrong type", value: 12.0, rule: Rule{Type: TypeString}, err: "Must be a string"},
		{name: "number from string", value: "42.5", rule: Rule{Type: TypeNumber}, valid: true, want: 42.5},
		{name: "number NaN", value: "abc", rule: Rule{Type: TypeNumber}, err: "Must be a valid number"},
		{name: "number range", value: 3.0, rule: Rule{Type: TypeNumber, Min: Float(5)}, err: "Must be at least 5"},
		{name: "number max", value: 7.0, rule: Rule{Type: TypeNumber, Max: Float(6.5)}, err: "Must be no more than 6.5"},
		{name: "email lowercased", value: "Alice@Example.COM", rule: Rule{Type: TypeEmail}, valid: true, want: "alice@example.com"},
		{name: "email invalid", value: "not-an-email", rule: Rule{Type: TypeEmail}, err: "Must be a valid email address"},
		{name: "url", value: "https://care.example.org/path?q=1", rule: Rule{Type: TypeURL}, valid: true, want: "https://care.example.org/path?q=1"},
		{name: "url invalid", value: "not a url", rule: Rule{Type: TypeURL}, err: "Must be a valid URL"},
		{name: "uuid v4", value: "3f2504e0-4f89-41d3-9a0c-0305e82c3301", rule: Rule{Type: TypeUUID}, valid: true, want: "3f2504e0-4f89-41d3-9a0c-0305e82c3301"},
		{name: "uuid uppercase", value: "3F2504E0-4F89-41D3-9A0C-0305E82C3301", rule: Rule{Type: TypeUUID}, valid: true, want: "3F2504E0-4F89-41D3-9A0C-0305E82C3301"},
		{name: "uuid version 0", value: "3f2504e0-4f89-01d3-9a0c-0305e82c3301", rule: Rule{Type: TypeUUID}, err: "Must be a valid UUID"},
		{name: "uuid bad variant", value: "3f2504e0-4f89-41d3-1a0c-0305e82c3301", rule: Rule{Type: TypeUUID}, err: "Must be a valid UUID"},
		{name: "uuid braces", value: "{3f2504e0-4f89-41d3-9a0c-0305e82c3301}", rule: Rule{Type: TypeUUID}, err: "Must be a valid UUID"},
		{name: "phone stripped", value: "+1 (415) 555-2671", rule: Rule{Type: TypePhone}, valid: true, want: "+14155552671"},
		{name: "phone leading zero", value: "0123", rule: Rule{Type: TypePhone}, err: "Must be a valid phone number"},
		{name: "date normalized", value: "2024-03-05", rule: Rule{Type: TypeDate}, valid: true, want: "2024-03-05T00:00:00.000Z"},
		{name: "date with offset", value: "2024-03-05T10:00:00+02:00", rule: Rule{Type: TypeDate}, valid: true, want: "2024-03-05T08:00:00.000Z"},
		{name: "date invalid", value: "yesterday", rule: Rule{Type: TypeDate}, err: "Must be a valid date"},
		{name: "custom", value: "abc", rule: Rule{Type: TypeString, Custom: func(v any) bool { return v == "xyz" }}, err: "Invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateInput(tt.value, tt.rule)
			assert.Equal(t, tt.valid, r.IsValid, "errors: %v", r.Errors)
			if tt.valid {
				assert.Equal(t, tt.want, r.SanitizedValue)
				return
			}
			assert.Contains(t, r.Errors, tt.err)
			assert.Nil(t, r.SanitizedValue)
		})
	}
}

func TestValidateSchemaIgnoresUnknownFields(t *testing.T) {
	res := ValidateSchema(map[string]any{
		"email":    "bob@example.com",
		"password": "x",
		"isAdmin":  true,
	}, LoginSchema())

	require.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
	assert.NotContains(t, res.SanitizedData, "isAdmin")
	assert.Equal(t, "bob@example.com", res.String("email"))
}

func TestRegistrationSchema(t *testing.T) {
	valid := map[string]any{
		"firstName": "Mary Ann",
		"lastName":  "Smith-Jones",
		"email":     "Mary@Clinic.org",
		"password":  "Str0ng!Pass",
		"role":      "doctor",
	}
	res := ValidateSchema(valid, RegistrationSchema())
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Equal(t, "mary@clinic.org", res.String("email"))
	assert.Equal(t, "doctor", res.String("role"))

	invalid := map[string]any{
		"firstName": "<b>",
		"email":     "nope",
		"password":  "weakpassword",
		"role":      "superuser",
	}
	res = ValidateSchema(invalid, RegistrationSchema())
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"Invalid format"}, res.Errors["firstName"])
	assert.Equal(t, []string{"This field is required"}, res.Errors["lastName"])
	assert.Equal(t, []string{"Must be a valid email address"}, res.Errors["email"])
	assert.Equal(t, []string{"Invalid format"}, res.Errors["password"])
	assert.Equal(t, []string{"Must be one of: user, admin, doctor, nurse, receptionist"}, res.Errors["role"])
	assert.Empty(t, res.SanitizedData)
}

func TestRegistrationSchemaApostropheIsEscapedBeforeMatching(t *testing.T) {
	res := ValidateSchema(map[string]any{
		"firstName": "D'Arcy",
		"lastName":  "O",
		"email":     "d@example.com",
		"password":  "Str0ng!Pass",
	}, RegistrationSchema())

	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"Invalid format"}, res.Errors["firstName"])
}

func TestSchemaSanitizationIsIdempotent(t *testing.T) {
	payload := map[string]any{
		"firstName": "  Anna  ",
		"lastName":  "Lee",
		"email":     "Anna@Example.com",
		"password":  "Str0ng!Pass",
		"role":      "nurse",
	}

	first := ValidateSchema(payload, RegistrationSchema())
	require.True(t, first.IsValid, "errors: %v", first.Errors)

	second := ValidateSchema(first.SanitizedData, RegistrationSchema())
	require.True(t, second.IsValid, "errors: %v", second.Errors)
	assert.Equal(t, first.SanitizedData, second.SanitizedData)
}

func TestProfileUpdateSchemaOptionalFields(t *testing.T) {
	res := ValidateSchema(map[string]any{}, ProfileUpdateSchema())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.SanitizedData)

	res = ValidateSchema(map[string]any{"phone": "+44 20 7946 0958"}, ProfileUpdateSchema())
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Equal(t, "+442079460958", res.String("phone"))
}
