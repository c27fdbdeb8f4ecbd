package validation

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateRequired valida que un campo no esté vacío
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMinLength valida la longitud mínima de un string
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < minLength {
		return errors.New(fieldName + " must be at least " + strconv.Itoa(minLength) + " characters long")
	}
	return nil
}

// ValidateMaxLength valida la longitud máxima de un string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return errors.New(fieldName + " must be at most " + strconv.Itoa(maxLength) + " characters long")
	}
	return nil
}

// ValidateUUID valida que un string sea un UUID válido
func ValidateUUID(value, fieldName string) error {
	if _, err := uuid.Parse(value); err != nil {
		return errors.New(fieldName + " must be a valid UUID")
	}
	return nil
}

// ValidateEmail valida el formato de un email
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email must have a valid format")
	}
	return nil
}

// EventValidation contiene validaciones específicas para eventos
type EventValidation struct{}

// ValidateEventName valida el nombre de un evento
func (v EventValidation) ValidateEventName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	if err := ValidateMinLength(name, 3, "name"); err != nil {
		return err
	}
	if err := ValidateMaxLength(name, 100, "name"); err != nil {
		return err
	}
	return nil
}

// ValidateEventDescription accepts an empty description
func (v EventValidation) ValidateEventDescription(description string) error {
	return ValidateMaxLength(description, 1000, "description")
}

// ParticipantValidation contiene validaciones específicas para participantes
type ParticipantValidation struct{}

// ValidateParticipantName valida el nombre visible de un participante
func (v ParticipantValidation) ValidateParticipantName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	if err := ValidateMaxLength(name, 60, "name"); err != nil {
		return err
	}
	return nil
}

// ValidateParticipantEmail accepts an empty email
func (v ParticipantValidation) ValidateParticipantEmail(email string) error {
	if email == "" {
		return nil
	}
	return ValidateEmail(email)
}
