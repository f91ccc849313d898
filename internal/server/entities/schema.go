// Package entities knows which record types the server accepts and how to
// validate them. Each type is served by a Handler that writes the record and
// its journal row through the same transaction.
package entities

import (
	"context"
	"fmt"
	"strings"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/google/uuid"
)

// Kind restricts the JSON type a field may hold. Null is always accepted for
// optional fields.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
)

// Field describes one entity attribute. Ref names the entity type the value
// must point at, inside the same tenant.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Ref      string
}

// Schema is the minimal shape of an entity type.
type Schema struct {
	Entity string
	Fields []Field
}

// reserved keys are owned by the server and never stored in record data.
var reserved = map[string]struct{}{"id": {}, "createdAt": {}, "updatedAt": {}}

// ValidationError reports a record that cannot be stored as given.
// It matches common.ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// RefChecker answers whether a referenced record exists.
type RefChecker func(ctx context.Context, entityType, id string) (bool, error)

// stripReserved copies data without server-owned keys.
func stripReserved(data api.Record) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := reserved[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// validateID checks the client-supplied identifier of a new record.
func validateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("%q is not a UUID", id)}
	}
	return nil
}

// Validate checks required fields, value kinds and references of the full
// (post-merge) field set. Unknown fields are kept as they are.
func (s Schema) Validate(ctx context.Context, data map[string]any, refs RefChecker) error {
	for _, f := range s.Fields {
		v, present := data[f.Name]
		if !present || v == nil {
			if f.Required {
				return &ValidationError{Field: f.Name, Message: "is required"}
			}
			continue
		}

		switch f.Kind {
		case KindString:
			str, ok := v.(string)
			if !ok {
				return &ValidationError{Field: f.Name, Message: "must be a string"}
			}
			if f.Required && strings.TrimSpace(str) == "" {
				return &ValidationError{Field: f.Name, Message: "must not be empty"}
			}
		case KindNumber:
			if _, ok := v.(float64); !ok {
				if _, isInt := v.(int); !isInt {
					return &ValidationError{Field: f.Name, Message: "must be a number"}
				}
			}
		}

		if f.Ref == "" {
			continue
		}
		id, ok := v.(string)
		if !ok || id == "" {
			return &ValidationError{Field: f.Name, Message: "must be a record id"}
		}
		found, err := refs(ctx, f.Ref, id)
		if err != nil {
			return fmt.Errorf("check reference %s: %w", f.Name, err)
		}
		if !found {
			return &ValidationError{Field: f.Name, Message: fmt.Sprintf("references missing %s %q", f.Ref, id)}
		}
	}
	return nil
}
