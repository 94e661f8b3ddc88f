package validation

import (
	"regexp"

	"github.com/MrEthical07/careauth/password"
)

// Roles accepted at registration.
var Roles = []any{"user", "admin", "doctor", "nurse", "receptionist"}

var namePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)

func nameRule(required bool) Rule {
	return Rule{
		Required:  required,
		Type:      TypeString,
		MinLength: 1,
		MaxLength: 50,
		Sanitize:  true,
		Pattern:   namePattern,
	}
}

// RegistrationSchema validates POST /register bodies.
func RegistrationSchema() Schema {
	return Schema{
		"firstName": nameRule(true),
		"lastName":  nameRule(true),
		"email": {
			Required:  true,
			Type:      TypeEmail,
			MaxLength: 254,
		},
		"password": {
			Required:  true,
			Type:      TypeString,
			MinLength: 8,
			MaxLength: 128,
			Pattern:   MatchFunc(password.HasAllCharacterClasses),
		},
		"role": {
			Type:    TypeString,
			Allowed: Roles,
		},
	}
}

// LoginSchema validates POST /login bodies.
func LoginSchema() Schema {
	return Schema{
		"email": {
			Required:  true,
			Type:      TypeEmail,
			MaxLength: 254,
		},
		"password": {
			Required:  true,
			Type:      TypeString,
			MinLength: 1,
			MaxLength: 128,
		},
	}
}

// ProfileUpdateSchema validates PUT /profile bodies.
func ProfileUpdateSchema() Schema {
	return Schema{
		"firstName": nameRule(false),
		"lastName":  nameRule(false),
		"phone": {
			Type: TypePhone,
		},
	}
}
