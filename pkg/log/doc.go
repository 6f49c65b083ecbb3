// Package log provides structured logging for RDS built on zerolog.
// Components obtain child loggers via WithComponent and friends so every
// line carries its origin.
package log
