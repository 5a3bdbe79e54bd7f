package validation

import "testing"

func TestValidateQuadrant(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"Q1", "Q2", "Q3", "Q4"} {
		if err := ValidateQuadrant(valid); err != nil {
			t.Errorf("ValidateQuadrant(%q) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"", "q1", "Q5", "urgent", "1"} {
		if err := ValidateQuadrant(invalid); err == nil {
			t.Errorf("ValidateQuadrant(%q) = nil, want error", invalid)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  moved to Q1  ", "moved to Q1"},
		{"strips control characters", "bad\x00reason\x07", "badreason"},
		{"keeps newlines and tabs", "line one\n\tline two", "line one\n\tline two"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuadrantValidatorTag(t *testing.T) {
	t.Parallel()

	type payload struct {
		Quadrant string `validate:"required,quadrant"`
	}

	if err := Validate.Struct(payload{Quadrant: "Q3"}); err != nil {
		t.Errorf("expected Q3 to validate, got %v", err)
	}
	if err := Validate.Struct(payload{Quadrant: "Q9"}); err == nil {
		t.Error("expected Q9 to fail validation")
	}
}
