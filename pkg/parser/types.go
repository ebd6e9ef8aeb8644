// Package parser provides log file reading, hashing and discovery.
package parser

// Line is a raw log line with its position in the source file.
type Line struct {
	// Text is the line content without the line terminator.
	Text string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}
