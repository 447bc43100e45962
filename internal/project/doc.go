// Package project finds the directory a relative lock path is anchored to.
//
// The lock only works if every contender computes the same absolute lock
// path. Commands are often started from different subdirectories of the same
// checkout, so relative paths are resolved against the git work tree root
// rather than the current directory. Outside a git checkout the starting
// directory is used as is.
package project
