// Package expr compiles request filters and bin projections into DynamoDB
// expressions. Every attribute name and value goes through a placeholder.
package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

// MaxNameLength bounds attribute names accepted by the builder.
const MaxNameLength = 255

// Components holds the compiled expression parts for a Scan input.
type Components struct {
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
	FilterExpression          string
	ProjectionExpression      string
}

// Builder compiles filter and projection expressions
type Builder struct {
	names        map[string]string
	values       map[string]types.AttributeValue
	filters      []string
	projections  []string
	nameCounter  int
	valueCounter int
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

// ValidateName rejects attribute names that cannot be placed in an
// expression: empty, oversized, invalid UTF-8 or containing control
// characters.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", customerrors.ErrInvalidQuery)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: attribute name exceeds %d bytes", customerrors.ErrInvalidQuery, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: attribute name is not valid UTF-8", customerrors.ErrInvalidQuery)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: attribute name contains control characters", customerrors.ErrInvalidQuery)
		}
	}
	return nil
}

// AddFilterCondition adds a condition joined to the previous ones with AND.
// Supported operators are "=" (or "EQ") and "BETWEEN", which takes a
// two-element []any.
func (b *Builder) AddFilterCondition(field, operator string, value any) error {
	if err := ValidateName(field); err != nil {
		return fmt.Errorf("invalid field name: %w", err)
	}

	var cond string
	switch strings.ToUpper(operator) {
	case "=", "EQ":
		valueRef, err := b.addValue(value)
		if err != nil {
			return err
		}
		cond = fmt.Sprintf("%s = %s", b.addName(field), valueRef)

	case "BETWEEN":
		bounds, ok := value.([]any)
		if !ok || len(bounds) != 2 {
			return fmt.Errorf("%w: BETWEEN requires exactly two values", customerrors.ErrInvalidQuery)
		}
		lo, err := b.addValue(bounds[0])
		if err != nil {
			return err
		}
		hi, err := b.addValue(bounds[1])
		if err != nil {
			return err
		}
		cond = fmt.Sprintf("%s BETWEEN %s AND %s", b.addName(field), lo, hi)

	default:
		return fmt.Errorf("%w: unsupported operator %q", customerrors.ErrInvalidQuery, operator)
	}

	b.filters = append(b.filters, cond)
	return nil
}

// AddProjection adds fields to the projection expression. Duplicates are
// projected once.
func (b *Builder) AddProjection(fields ...string) error {
	for _, field := range fields {
		if err := ValidateName(field); err != nil {
			return fmt.Errorf("invalid projection field: %w", err)
		}
		ref := b.addName(field)
		dup := false
		for _, p := range b.projections {
			if p == ref {
				dup = true
				break
			}
		}
		if !dup {
			b.projections = append(b.projections, ref)
		}
	}
	return nil
}

// Build returns the compiled components. Maps are nil when unused so the
// result can be assigned straight onto a ScanInput.
func (b *Builder) Build() Components {
	var c Components
	if len(b.names) > 0 {
		c.ExpressionAttributeNames = b.names
	}
	if len(b.values) > 0 {
		c.ExpressionAttributeValues = b.values
	}
	if len(b.filters) > 0 {
		c.FilterExpression = strings.Join(b.filters, " AND ")
	}
	if len(b.projections) > 0 {
		c.ProjectionExpression = strings.Join(b.projections, ", ")
	}
	return c
}

// addName returns the placeholder for name, reusing an existing one.
func (b *Builder) addName(name string) string {
	for placeholder, attrName := range b.names {
		if attrName == name {
			return placeholder
		}
	}
	b.nameCounter++
	placeholder := fmt.Sprintf("#n%d", b.nameCounter)
	b.names[placeholder] = name
	return placeholder
}

func (b *Builder) addValue(value any) (string, error) {
	av, err := ConvertToAttributeValue(value)
	if err != nil {
		return "", fmt.Errorf("failed to convert value type %T: %w", value, err)
	}
	b.valueCounter++
	placeholder := fmt.Sprintf(":v%d", b.valueCounter)
	b.values[placeholder] = av
	return placeholder, nil
}
