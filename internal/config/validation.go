package config

import (
	"fmt"
	"math"
	"regexp"
	"time"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
)

// Sequence and renderer names.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateProtocolStructure checks the rules that the JSON schema cannot
// express. It returns every problem found.
func ValidateProtocolStructure(p *Protocol) []error {
	var errs []error

	if len(p.Sequences) == 0 {
		errs = append(errs, stimerrors.NewValidationError("protocol must contain at least one entry in 'sequences'", nil))
	}
	errs = append(errs, validateDisplay(&p.Display)...)

	names := make(map[string]int)
	for i := range p.Sequences {
		seq := &p.Sequences[i]
		display := fmt.Sprintf("sequence %d", i)
		if seq.Name != "" {
			display = fmt.Sprintf("sequence %d ('%s')", i, seq.Name)
			if !nameRegex.MatchString(seq.Name) {
				errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: name contains invalid characters (allowed: alphanumeric, underscore, hyphen)", display), nil))
			}
			if prev, exists := names[seq.Name]; exists {
				errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: duplicate sequence name, first used by sequence %d", display, prev), nil))
			} else {
				names[seq.Name] = i
			}
		}

		if seq.Renderer != "" && !nameRegex.MatchString(seq.Renderer) {
			errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: renderer '%s' is not a valid name", display, seq.Renderer), nil))
		}

		if len(seq.Times) == 0 {
			errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: 'times' must not be empty", display), nil))
		}
		for j, t := range seq.Times {
			if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
				errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: times[%d] must be a non-negative number, got %v", display, j, t), nil))
			}
		}

		if seq.Repeat < 0 {
			errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: 'repeat' cannot be negative", display), nil))
		}
		if len(seq.Stimuli) == 0 && seq.Repeat == 0 {
			errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("%s: either 'stimuli' or a positive 'repeat' is required", display), nil))
		}
	}
	return errs
}

func validateDisplay(d *Display) []error {
	var errs []error
	if d.RefreshRate < 0 || math.IsNaN(d.RefreshRate) || math.IsInf(d.RefreshRate, 0) {
		errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("display: 'refresh_rate' must be a positive number, got %v", d.RefreshRate), nil))
	}
	if (d.FrameTransition || d.VSyncTimes) && d.RefreshRate <= 0 {
		errs = append(errs, stimerrors.NewValidationError("display: 'frame_transition' and 'vsync_times' require 'refresh_rate'", nil))
	}
	switch d.FrameAnchor {
	case "", AnchorPerStimulus, AnchorRunStart:
	default:
		errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("display: unknown 'frame_anchor' '%s'", d.FrameAnchor), nil))
	}
	if d.PollInterval != "" {
		poll, err := time.ParseDuration(d.PollInterval)
		if err != nil {
			errs = append(errs, stimerrors.NewValidationError(fmt.Sprintf("display: invalid format for 'poll_interval': %v", err), nil))
		} else if poll <= 0 {
			errs = append(errs, stimerrors.NewValidationError("display: 'poll_interval' must be positive", nil))
		}
	}
	return errs
}
