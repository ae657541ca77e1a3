package dump

import (
	"fmt"
	"strings"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/internal/options"
	difflib "github.com/pmezard/go-difflib/difflib"
)

const defaultContext = 3

// DiffConfig holds Diff settings.
type DiffConfig struct {
	fromName string
	toName   string
	context  int
}

// DiffOption represents a functional option for Diff.
type DiffOption = options.Option[*DiffConfig]

// WithNames sets the file names shown in the ---/+++ header lines.
func WithNames(from, to string) DiffOption {
	return options.NoError(func(cfg *DiffConfig) {
		cfg.fromName = from
		cfg.toName = to
	})
}

// WithContext sets the number of unchanged lines shown around each change.
func WithContext(lines int) DiffOption {
	return options.New(func(cfg *DiffConfig) error {
		if lines < 0 {
			return fmt.Errorf("diff context must not be negative: %d", lines)
		}
		cfg.context = lines

		return nil
	})
}

// Diff returns a unified diff from the listing of a to the listing of b.
//
// Identical models produce an empty string.
//
// Parameters:
//   - a: Original container
//   - b: Changed container
//   - opts: Diff options (WithNames, WithContext)
//
// Returns:
//   - string: Unified diff, empty when the listings match
//   - error: Invalid option or diff failure
func Diff(a, b *dex.Container, opts ...DiffOption) (string, error) {
	cfg := DiffConfig{fromName: "a", toName: "b", context: defaultContext}
	if err := options.Apply(&cfg, opts...); err != nil {
		return "", err
	}

	from, to := String(a), String(b)
	if from == to {
		return "", nil
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(from),
		B:        splitLinesKeepNL(to),
		FromFile: cfg.fromName,
		ToFile:   cfg.toName,
		Context:  cfg.context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("diff listings: %w", err)
	}

	return s, nil
}

// splitLinesKeepNL splits s after each newline. Listings always end with one,
// so the trailing empty element is dropped.
func splitLinesKeepNL(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return lines
}
