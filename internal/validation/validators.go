package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/quadtask/quadtask/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("quadrant", validateQuadrant); err != nil {
		panic(fmt.Sprintf("failed to register quadrant validator: %v", err))
	}
}

// validateQuadrant validates that a string is a valid Quadrant wire name
func validateQuadrant(fl validator.FieldLevel) bool {
	_, err := models.ParseQuadrant(fl.Field().String())
	return err == nil
}

// ValidateQuadrant validates a Quadrant string value
func ValidateQuadrant(value string) error {
	if _, err := models.ParseQuadrant(value); err != nil {
		return fmt.Errorf("invalid quadrant: %s (must be 'Q1', 'Q2', 'Q3', or 'Q4')", value)
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
