package config

import (
	"fmt"
	"strconv"
	"time"

	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	"gopkg.in/yaml.v3"
)

// Frame anchor names accepted in the display block.
const (
	AnchorPerStimulus = "per_stimulus"
	AnchorRunStart    = "run_start"
)

// DefaultRenderer is used by sequences that do not name one.
const DefaultRenderer = "console"

// Protocol represents the top-level structure of a stimkit protocol YAML file.
type Protocol struct {
	Name          string     `yaml:"name"`
	SchemaVersion string     `yaml:"schemaVersion"`
	Display       Display    `yaml:"display,omitempty"`
	Sequences     []Sequence `yaml:"sequences"`

	// FilePath is the source file, kept for error messages. It is not parsed
	// from the YAML.
	FilePath string `yaml:"-"`
}

// Display holds the settings shared by every sequence of the protocol.
type Display struct {
	RefreshRate     float64 `yaml:"refresh_rate,omitempty"`
	FrameTransition bool    `yaml:"frame_transition,omitempty"`
	VSyncTimes      bool    `yaml:"vsync_times,omitempty"`
	PrintFrames     bool    `yaml:"print_frames,omitempty"`
	FrameAnchor     string  `yaml:"frame_anchor,omitempty"`
	PollInterval    string  `yaml:"poll_interval,omitempty"`
}

// Sequence is one run of stimuli presented by a named renderer.
type Sequence struct {
	Name     string `yaml:"name,omitempty"`
	Renderer string `yaml:"renderer,omitempty"`
	Times    Times  `yaml:"times"`
	// WaitStyleFixed defaults to true when omitted.
	WaitStyleFixed    *bool    `yaml:"wait_style_fixed,omitempty"`
	Suspendable       bool     `yaml:"suspendable,omitempty"`
	Stimuli           []string `yaml:"stimuli,omitempty"`
	Repeat            int      `yaml:"repeat,omitempty"`
	PreStimulusMarker string   `yaml:"pre_stimulus_marker,omitempty"`
}

// Times is a list of presentation times in seconds. A single number is
// accepted in place of a one-element list.
type Times []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Times) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("line %d: times must be a number or a list of numbers: %w", value.Line, err)
		}
		*t = Times{v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := value.Decode(&vs); err != nil {
			return fmt.Errorf("line %d: times must be a number or a list of numbers: %w", value.Line, err)
		}
		*t = vs
		return nil
	default:
		return fmt.Errorf("line %d: times must be a number or a list of numbers", value.Line)
	}
}

// FixedCadence reports whether the sequence waits on an absolute schedule.
func (s *Sequence) FixedCadence() bool {
	return s.WaitStyleFixed == nil || *s.WaitStyleFixed
}

// RendererName returns the configured renderer or DefaultRenderer.
func (s *Sequence) RendererName() string {
	if s.Renderer == "" {
		return DefaultRenderer
	}
	return s.Renderer
}

// Labels expands the stimuli list by the repeat count. A sequence without
// stimuli presents Repeat numbered stimuli.
func (s *Sequence) Labels() []string {
	if len(s.Stimuli) == 0 {
		labels := make([]string, s.Repeat)
		for i := range labels {
			labels[i] = strconv.Itoa(i + 1)
		}
		return labels
	}
	n := s.Repeat
	if n < 1 {
		n = 1
	}
	labels := make([]string, 0, n*len(s.Stimuli))
	for i := 0; i < n; i++ {
		labels = append(labels, s.Stimuli...)
	}
	return labels
}

// Anchor converts FrameAnchor to its engine value.
func (d Display) Anchor() v1.FrameAnchor {
	if d.FrameAnchor == AnchorRunStart {
		return v1.AnchorRunStart
	}
	return v1.AnchorPerStimulus
}

// FactoryOptions translates the display block into factory options. The
// display is expected to have passed validation.
func (d Display) FactoryOptions() []v1.FactoryOption {
	var opts []v1.FactoryOption
	if d.RefreshRate > 0 {
		opts = append(opts, v1.WithRefreshRate(d.RefreshRate))
	}
	opts = append(opts,
		v1.WithFrameTransition(d.FrameTransition),
		v1.WithVSyncTimes(d.VSyncTimes),
		v1.WithPrintFrames(d.PrintFrames),
		v1.WithFrameAnchor(d.Anchor()),
	)
	if d.PollInterval != "" {
		if poll, err := time.ParseDuration(d.PollInterval); err == nil {
			opts = append(opts, v1.WithPollInterval(poll))
		}
	}
	return opts
}
