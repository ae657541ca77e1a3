// Package dump renders a dex container as a stable text listing and diffs
// two containers by their listings.
//
// The listing resolves every pool reference to its descriptor form, so two
// containers holding the same model produce byte-identical output no matter
// how their pools were built. Instruction words are printed in hex; the
// package does not disassemble.
//
//	if err := dump.Write(os.Stdout, c); err != nil {
//	    return err
//	}
//
//	patch, err := dump.Diff(before, after, dump.WithNames("before.dex", "after.dex"))
package dump
