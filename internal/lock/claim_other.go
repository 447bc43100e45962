//go:build !windows

package lock

// ClaimSeparator joins the fields of a claim identity, which is also the
// claim file name when no scratch directory is set.
const ClaimSeparator = "|"
