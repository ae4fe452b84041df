package at

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner.
//
// It splits the input by CRLF line endings. Lone CR or LF separators
// (seen on some older firmwares) are not handled; every modem the
// inspector ships plugins for frames responses with CRLF.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of a single modem output line.
func Classify(line string) ResponseType {
	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), line == UrcCall:
		return TypeURC
	default:
		return TypeData
	}
}

// ErrorCode extracts the numeric code from a "+CME ERROR: <n>" or
// "+CMS ERROR: <n>" line. It returns false when the line is not an
// extended error or carries a non-numeric (verbose) code.
func ErrorCode(line string) (int, bool) {
	var rest string
	switch {
	case strings.HasPrefix(line, CmeError):
		rest = line[len(CmeError):]
	case strings.HasPrefix(line, CmsError):
		rest = line[len(CmsError):]
	default:
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return code, true
}

// StripEcho removes a leading command echo from response lines. Modems
// with echo enabled repeat the command as the first line of the reply.
func StripEcho(cmd string, lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	if strings.EqualFold(strings.TrimSpace(lines[0]), strings.TrimSpace(cmd)) {
		return lines[1:]
	}
	return lines
}
