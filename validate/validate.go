// Package validate holds the selection rules checked before previews are trusted
// and before a form is submitted.
package validate

import (
	"fmt"
	"slices"

	"github.com/moyoez/mosaic/types"
)

// Decimal size units, matching how the limits are shown to users.
const (
	KB = int64(1000)
	MB = KB * 1000
)

const (
	DefaultMaxPhotos          = 9
	DefaultMaxFileSize        = 2 * MB
	DefaultAcceptedTypesLabel = "PNG and JPEG"
)

// DefaultAcceptedTypes lists the media types accepted out of the box.
var DefaultAcceptedTypes = []string{"image/jpeg", "image/png"}

// Rule names a validation check. The names are the keys reported to the page.
type Rule string

const (
	RuleAllowedNumberOfPhotos Rule = "allowedNumberOfPhotos"
	RuleAcceptedFormats       Rule = "acceptedFormats"
	RuleLessThanMaxSize       Rule = "lessThan2MB"
	RuleRequired              Rule = "required"
)

// Policy configures the three selection checks.
type Policy struct {
	MaxPhotos          int
	MaxFileSize        int64
	AcceptedTypes      []string
	AcceptedTypesLabel string
}

// DefaultPolicy returns 9 photos, 2MB each, PNG or JPEG.
func DefaultPolicy() Policy {
	return Policy{
		MaxPhotos:          DefaultMaxPhotos,
		MaxFileSize:        DefaultMaxFileSize,
		AcceptedTypes:      slices.Clone(DefaultAcceptedTypes),
		AcceptedTypesLabel: DefaultAcceptedTypesLabel,
	}
}

// PolicyFromConfig builds a policy, falling back to defaults for unset fields.
func PolicyFromConfig(cfg *types.AppConfig) Policy {
	p := DefaultPolicy()
	if cfg == nil {
		return p
	}
	if cfg.MaxPhotos > 0 {
		p.MaxPhotos = cfg.MaxPhotos
	}
	if cfg.MaxFileSize > 0 {
		p.MaxFileSize = cfg.MaxFileSize
	}
	if len(cfg.AcceptedTypes) > 0 {
		p.AcceptedTypes = slices.Clone(cfg.AcceptedTypes)
	}
	if cfg.AcceptedTypesLabel != "" {
		p.AcceptedTypesLabel = cfg.AcceptedTypesLabel
	}
	return p
}

// CheckCount rejects selections holding more than limit files.
func CheckCount(sel types.FileSelection, limit int) error {
	if len(sel) > limit {
		return NewValidationError(RuleAllowedNumberOfPhotos, fmt.Sprintf("Only %d photos are allowed", limit))
	}
	return nil
}

// CheckSize rejects the selection if any file is larger than maxSize bytes.
func CheckSize(sel types.FileSelection, maxSize int64) error {
	for _, f := range sel {
		if f.Size > maxSize {
			return NewValidationError(RuleLessThanMaxSize, fmt.Sprintf("Maximum of %s only.", FormatSize(maxSize)))
		}
	}
	return nil
}

// CheckType rejects the selection if any declared type is not exactly one of accepted.
// label is used in the message, e.g. "PNG and JPEG".
func CheckType(sel types.FileSelection, accepted []string, label string) error {
	for _, f := range sel {
		if !slices.Contains(accepted, f.Type) {
			return NewValidationError(RuleAcceptedFormats, "Only "+label)
		}
	}
	return nil
}

// Required rejects an empty selection. Only submission checks it; the browser
// enforces it on the file input.
func Required(sel types.FileSelection) error {
	if len(sel) == 0 {
		return NewValidationError(RuleRequired, "Please select at least one photo")
	}
	return nil
}

// Check is one named rule bound to a policy.
type Check struct {
	Rule Rule
	Fn   func(types.FileSelection) error
}

// Checks returns the policy's rules in display order.
func (p Policy) Checks() []Check {
	return []Check{
		{Rule: RuleAllowedNumberOfPhotos, Fn: func(sel types.FileSelection) error {
			return CheckCount(sel, p.MaxPhotos)
		}},
		{Rule: RuleAcceptedFormats, Fn: func(sel types.FileSelection) error {
			return CheckType(sel, p.AcceptedTypes, p.AcceptedTypesLabel)
		}},
		{Rule: RuleLessThanMaxSize, Fn: func(sel types.FileSelection) error {
			return CheckSize(sel, p.MaxFileSize)
		}},
	}
}

// Validate runs every check independently and returns all failures.
func (p Policy) Validate(sel types.FileSelection) []*ValidationError {
	var failures []*ValidationError
	for _, c := range p.Checks() {
		if err := c.Fn(sel); err != nil {
			failures = append(failures, asValidationError(c.Rule, err))
		}
	}
	return failures
}

// ValidateSubmission is Validate plus the required rule.
func (p Policy) ValidateSubmission(sel types.FileSelection) []*ValidationError {
	if err := Required(sel); err != nil {
		return []*ValidationError{asValidationError(RuleRequired, err)}
	}
	return p.Validate(sel)
}

// FormatSize renders a byte count in decimal units: 2000000 -> "2MB".
func FormatSize(n int64) string {
	switch {
	case n >= MB && n%MB == 0:
		return fmt.Sprintf("%dMB", n/MB)
	case n >= KB && n%KB == 0:
		return fmt.Sprintf("%dKB", n/KB)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
