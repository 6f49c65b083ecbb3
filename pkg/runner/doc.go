// Package runner executes approved jobs against private data in a
// local subprocess or a locked-down Docker container. Output is
// streamed line by line to pluggable handlers; stderr lines carrying an
// ERROR or CRITICAL marker fail the run even when the process exits
// zero, so silently broken scripts never look successful.
package runner
