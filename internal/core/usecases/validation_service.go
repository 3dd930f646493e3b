// internal/core/usecases/validation_service.go
package usecases

import (
	"fmt"
	"strings"

	"argus/internal/core/domain"
	"argus/internal/platform/validator"
)

// Penalizaciones sobre el puntaje de calidad (base 100).
const (
	penaltyMissingValue  = 40
	penaltyFormat        = 20
	penaltyMissingSource = 10
	penaltyNoConfidence  = 5
)

// ValidationResult es el resultado de validar un record.
type ValidationResult struct {
	Score    int
	Warnings []string
	// Errors son errores duros: el record va a la lista de inválidos
	Errors []string
}

// Valid indica si el record puede fusionarse.
func (v ValidationResult) Valid() bool {
	return len(v.Errors) == 0
}

// Err retorna un *domain.ValidationError o nil.
func (v ValidationResult) Err(r domain.RawRecord) error {
	if v.Valid() {
		return nil
	}
	return &domain.ValidationError{Value: r.Value, Type: r.Type, Reasons: v.Errors}
}

// RecordValidator puntúa records canónicos.
type RecordValidator struct{}

// NewRecordValidator crea el validador.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{}
}

// Validate aplica las reglas de formato por tipo y las penalizaciones.
func (v *RecordValidator) Validate(r domain.RawRecord) ValidationResult {
	res := ValidationResult{Score: 100}

	if strings.TrimSpace(r.Value) == "" {
		res.Score -= penaltyMissingValue
		res.Errors = append(res.Errors, "missing value")
	}
	if strings.TrimSpace(string(r.Type)) == "" {
		res.Errors = append(res.Errors, "missing type")
	}

	if len(res.Errors) == 0 && !formatMatches(r.Type, r.Value) {
		res.Score -= penaltyFormat
		res.Warnings = append(res.Warnings, fmt.Sprintf("value does not look like a %s", r.Type))
	}
	if strings.TrimSpace(r.Source) == "" {
		res.Score -= penaltyMissingSource
		res.Warnings = append(res.Warnings, "missing source")
	}
	if r.Confidence <= 0 {
		res.Score -= penaltyNoConfidence
		res.Warnings = append(res.Warnings, "missing confidence")
	}

	if res.Score < 0 {
		res.Score = 0
	}
	return res
}

// formatMatches valida el formato por tipo. Tipos sin regla pasan siempre.
func formatMatches(t domain.EntityType, value string) bool {
	switch t {
	case domain.EntityDomain, domain.EntitySubdomain, domain.EntityNameserver:
		return validator.IsDomain(value)
	case domain.EntityEmail:
		return validator.IsEmail(value)
	case domain.EntityIP:
		return validator.IsIP(value)
	case domain.EntityURL:
		return validator.IsURL(value)
	case domain.EntityPhone:
		return validator.IsPhone(value)
	case domain.EntityHash:
		return validator.IsHash(value)
	case domain.EntityCertificate:
		return validator.IsCertSerial(value)
	case domain.EntityOnionService:
		return validator.IsOnion(value)
	case domain.EntityUsername:
		return validator.IsUsername(value)
	case domain.EntitySocialProfile:
		_, handle, ok := strings.Cut(value, ":")
		return ok && handle != ""
	default:
		return true
	}
}
