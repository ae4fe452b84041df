package at_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/veenone/modem-inspector/at"
)

func TestSplitter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Simple AT command response",
			input:    "AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n",
			expected: []string{"AT+CSQ", "+CSQ: 15,99", "OK"},
		},
		{
			name:     "AT command with error",
			input:    "AT+CPIN?\r\n+CME ERROR: 10\r\n",
			expected: []string{"AT+CPIN?", "+CME ERROR: 10"},
		},
		{
			name:     "Network registration check",
			input:    "AT+CREG?\r\n+CREG: 0,1\r\nOK\r\n",
			expected: []string{"AT+CREG?", "+CREG: 0,1", "OK"},
		},
		{
			name:     "Multi-line identification",
			input:    "ATI\r\nQuectel\r\nEC25\r\nRevision: EC25EFAR06A01M4G\r\nOK\r\n",
			expected: []string{"ATI", "Quectel", "EC25", "Revision: EC25EFAR06A01M4G", "OK"},
		},
		{
			name:     "URC mixed with AT response",
			input:    "AT+CSQ\r\n+CMTI: \"SM\",1\r\n+CSQ: 20,99\r\nOK\r\n",
			expected: []string{"AT+CSQ", "+CMTI: \"SM\",1", "+CSQ: 20,99", "OK"},
		},
		{
			name:     "Empty lines handling",
			input:    "\r\n\r\nAT\r\nOK\r\n\r\n",
			expected: []string{"", "", "AT", "OK", ""},
		},
		// EOF scenarios - testing atEOF functionality
		{
			name:     "Incomplete response at EOF",
			input:    "AT+CSQ\r\n+CSQ: 15,99",
			expected: []string{"AT+CSQ", "+CSQ: 15,99"},
		},
		{
			name:     "Command without CRLF at EOF",
			input:    "AT+CPIN",
			expected: []string{"AT+CPIN"},
		},
		{
			name:     "Response cut off mid-stream at EOF",
			input:    "AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n+CMTI: \"SM\",1",
			expected: []string{"AT+CSQ", "+CSQ: 15,99", "OK", "+CMTI: \"SM\",1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []string
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(at.Splitter)

			for scanner.Scan() {
				tokens = append(tokens, scanner.Text())
			}

			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("Expected %d tokens, got %d.\nExpected: %v\nGot: %v",
					len(tt.expected), len(tokens), tt.expected, tokens)
			}

			for i, expected := range tt.expected {
				if tokens[i] != expected {
					t.Errorf("Token %d: expected %q, got %q", i, expected, tokens[i])
				}
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected at.ResponseType
	}{
		// Final responses
		{name: "OK response", input: "OK", expected: at.TypeFinal},
		{name: "ERROR response", input: "ERROR", expected: at.TypeFinal},
		{name: "CME Error", input: "+CME ERROR: 30", expected: at.TypeFinal},
		{name: "CMS Error", input: "+CMS ERROR: 500", expected: at.TypeFinal},
		{name: "NO CARRIER", input: "NO CARRIER", expected: at.TypeFinal},

		// URCs
		{name: "New message URC", input: "+CMTI: \"SM\",1", expected: at.TypeURC},
		{name: "Incoming call URC", input: "RING", expected: at.TypeURC},

		// Data responses
		{name: "AT command", input: "AT+CSQ", expected: at.TypeData},
		{name: "Signal quality response", input: "+CSQ: 15,99", expected: at.TypeData},
		{name: "PIN status", input: "+CPIN: READY", expected: at.TypeData},
		{name: "Network registration", input: "+CREG: 0,1", expected: at.TypeData},
		{name: "Device info", input: "Quectel", expected: at.TypeData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := at.Classify(tt.input)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v for input %q", tt.expected, result, tt.input)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		code   int
		wantOK bool
	}{
		{name: "CME numeric", input: "+CME ERROR: 10", code: 10, wantOK: true},
		{name: "CMS numeric", input: "+CMS ERROR: 500", code: 500, wantOK: true},
		{name: "CME verbose", input: "+CME ERROR: SIM not inserted", wantOK: false},
		{name: "Plain ERROR", input: "ERROR", wantOK: false},
		{name: "Data line", input: "+CSQ: 15,99", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := at.ErrorCode(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ErrorCode(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && code != tt.code {
				t.Errorf("ErrorCode(%q) = %d, want %d", tt.input, code, tt.code)
			}
		})
	}
}

func TestStripEcho(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		lines    []string
		expected []string
	}{
		{
			name:     "Echo present",
			cmd:      "AT+CGMI",
			lines:    []string{"AT+CGMI", "Quectel", "OK"},
			expected: []string{"Quectel", "OK"},
		},
		{
			name:     "Echo absent",
			cmd:      "AT+CGMI",
			lines:    []string{"Quectel", "OK"},
			expected: []string{"Quectel", "OK"},
		},
		{
			name:     "Case-insensitive echo",
			cmd:      "at+cgmi",
			lines:    []string{"AT+CGMI", "Quectel", "OK"},
			expected: []string{"Quectel", "OK"},
		},
		{
			name:     "Empty input",
			cmd:      "AT",
			lines:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := at.StripEcho(tt.cmd, tt.lines)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("line %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}
