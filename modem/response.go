package modem

import (
	"fmt"
	"strings"
	"time"

	"github.com/veenone/modem-inspector/at"
)

// Status is the terminal classification of a command execution.
type Status string

const (
	// StatusSuccess means the modem answered with OK.
	StatusSuccess Status = "success"
	// StatusError means the modem answered with a plain ERROR.
	StatusError Status = "error"
	// StatusCMEError means the modem reported an extended equipment
	// error (+CME ERROR). Definitive, never retried.
	StatusCMEError Status = "cme_error"
	// StatusCMSError means the modem reported a messaging service
	// error (+CMS ERROR). Definitive, never retried.
	StatusCMSError Status = "cms_error"
	// StatusTimeout means no final result code arrived before the
	// deadline on any attempt.
	StatusTimeout Status = "timeout"
)

// NoErrorCode is the ErrorCode value of responses that carry no numeric
// device error.
const NoErrorCode = -1

// CommandResponse captures everything about one completed command
// execution, including all retries. It is created once per attempt chain
// and never mutated afterwards.
type CommandResponse struct {
	// Command is the AT command string that was sent (e.g. "AT+CGMI").
	Command string `json:"command"`
	// Status is the terminal classification.
	Status Status `json:"status"`
	// Raw is the response text with the command echo stripped. For
	// transport faults it carries the fault description instead.
	Raw string `json:"raw"`
	// ErrorCode is the numeric code from +CME ERROR / +CMS ERROR, or
	// NoErrorCode when the device reported none.
	ErrorCode int `json:"error_code"`
	// Elapsed is the wall time from the first write to the terminal
	// classification, across all retries.
	Elapsed time.Duration `json:"elapsed"`
	// Retries is the number of retry attempts actually used. Zero when
	// the first attempt reached a terminal status.
	Retries int `json:"retries"`
	// Timestamp is when the response reached its terminal state.
	Timestamp time.Time `json:"timestamp"`
}

// Successful reports whether the command completed with OK.
func (r CommandResponse) Successful() bool {
	return r.Status == StatusSuccess
}

// Body returns the response text without final result code lines. This
// is what parsers match against.
func (r CommandResponse) Body() string {
	lines := strings.Split(r.Raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if at.Classify(strings.TrimSpace(line)) == at.TypeFinal {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func (r CommandResponse) String() string {
	switch r.Status {
	case StatusSuccess:
		return fmt.Sprintf("[%s] %s (%.3fs)", r.Status, r.Command, r.Elapsed.Seconds())
	case StatusTimeout:
		return fmt.Sprintf("[%s] %s after %d retries (%.3fs)", r.Status, r.Command, r.Retries, r.Elapsed.Seconds())
	default:
		if r.ErrorCode != NoErrorCode {
			return fmt.Sprintf("[%s] %s code=%d (%.3fs)", r.Status, r.Command, r.ErrorCode, r.Elapsed.Seconds())
		}
		return fmt.Sprintf("[%s] %s (%.3fs)", r.Status, r.Command, r.Elapsed.Seconds())
	}
}

// ClassifyResponse determines the terminal status of raw response text.
//
// Precedence: +CME ERROR > +CMS ERROR > ERROR > OK. The first matching
// class wins; text with no final result code at all classifies as
// StatusTimeout. The returned code is the numeric device error when the
// winning line carries one, NoErrorCode otherwise.
func ClassifyResponse(raw string) (Status, int) {
	var (
		sawOK, sawError bool
		cmeLine, cmsLine string
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, at.CmeError):
			if cmeLine == "" {
				cmeLine = line
			}
		case strings.HasPrefix(line, at.CmsError):
			if cmsLine == "" {
				cmsLine = line
			}
		case line == at.ERROR:
			sawError = true
		case line == at.OK:
			sawOK = true
		}
	}

	switch {
	case cmeLine != "":
		return StatusCMEError, codeOrNone(cmeLine)
	case cmsLine != "":
		return StatusCMSError, codeOrNone(cmsLine)
	case sawError:
		return StatusError, NoErrorCode
	case sawOK:
		return StatusSuccess, NoErrorCode
	default:
		return StatusTimeout, NoErrorCode
	}
}

func codeOrNone(line string) int {
	if code, ok := at.ErrorCode(line); ok {
		return code
	}
	return NoErrorCode
}
