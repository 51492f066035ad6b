package j2k

import "fmt"

// EncoderParams configures a Writer's codec: single quality layer, fixed
// resolution-level count, LRCP progression, reversible-or-not transform.
type EncoderParams struct {
	Quality          int  `validate:"gte=1,lte=100"`
	ResolutionLevels int  `validate:"gte=1,lte=32"`
	Lossless         bool
}

// DefaultEncoderParams returns the baseline configuration: single quality
// layer, 6 resolution levels, LRCP progression, irreversible transform off
// (i.e. lossless).
func DefaultEncoderParams() EncoderParams {
	return EncoderParams{
		Quality:          100,
		ResolutionLevels: 6,
		Lossless:         true,
	}
}

// Validate checks EncoderParams against its struct tags.
func (p EncoderParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("j2k: invalid encoder params: %w", err)
	}
	return nil
}
