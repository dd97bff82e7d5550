package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports missing or malformed resource properties. It is a
// template bug, never a transient condition, so it is not retried.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required properties: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid properties: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return "invalid resource properties"
	}
	return strings.Join(parts, "; ")
}

// Permanent marks the error as not retryable.
func (e *ValidationError) Permanent() bool { return true }

// Properties reads named parameters from a raw property bag and collects
// every problem, so one Err call reports them all.
//
//	p := resource.NewProperties(raw)
//	out := Props{Arn: p.String("ServiceArn"), WWW: p.Bool("EnableWWWSubdomain", false)}
//	if err := p.Err(); err != nil { ... }
type Properties struct {
	raw     map[string]any
	missing []string
	invalid []string
}

func NewProperties(raw map[string]any) *Properties {
	return &Properties{raw: raw}
}

// String returns a required, non-blank string property.
func (p *Properties) String(name string) string {
	v, ok := p.raw[name]
	if !ok || v == nil {
		p.missing = append(p.missing, name)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.invalid = append(p.invalid, fmt.Sprintf("%s (expected string, got %T)", name, v))
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		p.missing = append(p.missing, name)
	}
	return s
}

// Bool returns an optional boolean. CloudFormation passes scalars as
// strings, so "true"/"false" are accepted alongside JSON booleans.
func (p *Properties) Bool(name string, def bool) bool {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if strings.TrimSpace(b) == "" {
			return def
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			p.invalid = append(p.invalid, fmt.Sprintf("%s (%q is not a boolean)", name, b))
			return def
		}
		return parsed
	default:
		p.invalid = append(p.invalid, fmt.Sprintf("%s (expected boolean, got %T)", name, v))
		return def
	}
}

// Err returns a *ValidationError when any read failed.
func (p *Properties) Err() error {
	if len(p.missing) == 0 && len(p.invalid) == 0 {
		return nil
	}
	return &ValidationError{Missing: p.missing, Invalid: p.invalid}
}
