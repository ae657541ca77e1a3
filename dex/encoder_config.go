package dex

import "github.com/arloliu/dexkit/internal/options"

// InstructionRewriter patches pool indices embedded in instruction words after
// the pools were rebuilt. It is called once per code body.
type InstructionRewriter func(code *Code, remap *Remap) error

// EncoderConfig holds encode settings.
type EncoderConfig struct {
	dedup        bool
	canonicalize bool
	rewriter     InstructionRewriter
}

// EncodeOption represents a functional option for Encode.
type EncodeOption = options.Option[*EncoderConfig]

// NewEncoderConfig returns the default configuration: deduplication and
// canonicalization enabled, no instruction rewriter.
func NewEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		dedup:        true,
		canonicalize: true,
	}
}

// WithDeduplication toggles sharing of byte-identical debug infos, encoded
// arrays and annotation structures. It is enabled by default.
func WithDeduplication(enabled bool) EncodeOption {
	return options.NoError(func(cfg *EncoderConfig) {
		cfg.dedup = enabled
	})
}

// WithCanonicalize toggles the pool rebuild that Encode runs when a pool was
// mutated. Disabling it writes pools in their current order, which produces a
// non-conforming image unless the caller keeps the pools sorted.
func WithCanonicalize(enabled bool) EncodeOption {
	return options.NoError(func(cfg *EncoderConfig) {
		cfg.canonicalize = enabled
	})
}

// WithInstructionRewriter installs a callback invoked for every code body
// after canonicalization changed the pool indices.
func WithInstructionRewriter(fn InstructionRewriter) EncodeOption {
	return options.NoError(func(cfg *EncoderConfig) {
		cfg.rewriter = fn
	})
}
