// validate.go implements the lexical rule for database and table names.

package tdevents

import "regexp"

// namePattern accepts lowercase letters, digits and underscore, 3 to 255
// characters long.
var namePattern = regexp.MustCompile(`^[0-9a-z_]{3,255}$`)

// ValidateDatabaseName returns a *ValidationError if name is not a legal
// database name.
func ValidateDatabaseName(name string) error {
	return validateName("database", name)
}

// ValidateTableName returns a *ValidationError if name is not a legal table
// name.
func ValidateTableName(name string) error {
	return validateName("table", name)
}

func validateName(field, name string) error {
	if name == "" {
		return &ValidationError{Field: field, Value: name, Reason: "must not be empty"}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{
			Field:  field,
			Value:  name,
			Reason: "must be 3-255 characters of lowercase letters, digits or underscore",
		}
	}
	return nil
}
