// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type passwordPayload struct {
	Password string `validate:"required,strong_password"`
}

func TestStrongPassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Sup3rSecret", true},
		{"too short", "Ab1", false},
		{"no uppercase", "sup3rsecret", false},
		{"no lowercase", "SUP3RSECRET", false},
		{"no number", "SuperSecret", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(&passwordPayload{Password: tc.password})
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

type profilePayload struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
}

func TestGetValidationErrors(t *testing.T) {
	err := ValidateStruct(&profilePayload{Name: "A", Email: "nope"})
	assert.Error(t, err)

	fieldErrors := GetValidationErrors(err)
	assert.Len(t, fieldErrors, 2)
	assert.Equal(t, "name", fieldErrors[0].Field)
	assert.Equal(t, "min", fieldErrors[0].Tag)
	assert.Equal(t, "email", fieldErrors[1].Field)
	assert.Equal(t, "Invalid email format", fieldErrors[1].Message)
}
