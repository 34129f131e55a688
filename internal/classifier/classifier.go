package classifier

import (
	"fmt"

	"postpipe/internal/models"
)

// Length bands used when no explicit platform is supplied. Content between
// bands is assigned to the nearest one.
const (
	xBandMax          = 280
	noteBandMin       = 1500
	noteBandMax       = 2500
	wordpressBandMin  = 3000
	noteIdealMin      = 500
	wordpressIdealMin = 1000
	wordpressIdealMax = 10000
	xIdealMin         = 80
)

// Bounds is a hard length window for one intake variant. Max always
// rejects when exceeded; Min rejects only when non-zero (the platform
// specific endpoints carry a hard minimum, the generic endpoint does not).
type Bounds struct {
	Min int
	Max int
}

// GenericBounds are the limits enforced by the generic intake endpoint.
var GenericBounds = map[string]Bounds{
	models.PlatformX:         {Max: 280},
	models.PlatformNote:      {Max: 10000},
	models.PlatformWordpress: {Max: 50000},
}

// VariantBounds are the stricter limits enforced by the per-platform
// intake endpoints.
var VariantBounds = map[string]Bounds{
	models.PlatformX:         {Max: 280},
	models.PlatformNote:      {Min: 100, Max: 3000},
	models.PlatformWordpress: {Min: 300, Max: 5000},
}

// ValidationError reports a length or field violation. It carries the
// limit and the actual length so handlers can return both to the caller.
type ValidationError struct {
	Reason        string
	Platform      string
	MaxLength     int
	MinLength     int
	CurrentLength int
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Classify resolves the destination platform for content. When an explicit
// platform is given it is validated and returned untouched; otherwise the
// content length picks a band, and lengths between bands snap to the
// nearest boundary.
func Classify(content, explicit string) (string, error) {
	if explicit != "" {
		if !models.KnownPlatform(explicit) {
			return "", &ValidationError{
				Reason:   fmt.Sprintf("unknown platform %q", explicit),
				Platform: explicit,
			}
		}
		return explicit, nil
	}

	n := len(content)
	switch {
	case n <= xBandMax:
		return models.PlatformX, nil
	case n >= noteBandMin && n <= noteBandMax:
		return models.PlatformNote, nil
	case n >= wordpressBandMin:
		return models.PlatformWordpress, nil
	case n < noteBandMin:
		// Between the x and note bands.
		if n-xBandMax <= noteBandMin-n {
			return models.PlatformX, nil
		}
		return models.PlatformNote, nil
	default:
		// Between the note and wordpress bands.
		if n-noteBandMax <= wordpressBandMin-n {
			return models.PlatformNote, nil
		}
		return models.PlatformWordpress, nil
	}
}

// Validate enforces the hard bounds for a platform. Exceeding Max always
// rejects; falling below Min rejects only when the bounds define one.
// Content is never truncated.
func Validate(content, platform string, bounds map[string]Bounds) error {
	b, ok := bounds[platform]
	if !ok {
		return &ValidationError{
			Reason:   fmt.Sprintf("unknown platform %q", platform),
			Platform: platform,
		}
	}

	n := len(content)
	if n > b.Max {
		return &ValidationError{
			Reason:        fmt.Sprintf("content exceeds %s maximum of %d characters", platform, b.Max),
			Platform:      platform,
			MaxLength:     b.Max,
			CurrentLength: n,
		}
	}
	if b.Min > 0 && n < b.Min {
		return &ValidationError{
			Reason:        fmt.Sprintf("content is below the %s minimum of %d characters", platform, b.Min),
			Platform:      platform,
			MinLength:     b.Min,
			CurrentLength: n,
		}
	}
	return nil
}

// QualityNote returns an advisory string describing how well the content
// length fits the platform's ideal range. Notes never block intake.
func QualityNote(length int, platform string) string {
	switch platform {
	case models.PlatformX:
		if length < xIdealMin {
			return "too short for ideal engagement"
		}
		return "ideal length"
	case models.PlatformNote:
		switch {
		case length < noteIdealMin:
			return "too short for ideal engagement"
		case length > wordpressBandMin:
			return "consider restructuring with headings"
		default:
			return "ideal length"
		}
	case models.PlatformWordpress:
		switch {
		case length < wordpressIdealMin:
			return "too short for ideal engagement"
		case length > wordpressIdealMax:
			return "consider splitting into a series"
		default:
			return "ideal length"
		}
	}
	return ""
}
