package modem_test

import (
	"testing"

	"github.com/veenone/modem-inspector/modem"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStatus modem.Status
		wantCode   int
	}{
		{"plain OK", "OK", modem.StatusSuccess, modem.NoErrorCode},
		{"data then OK", "Quectel\n\nOK", modem.StatusSuccess, modem.NoErrorCode},
		{"plain ERROR", "ERROR", modem.StatusError, modem.NoErrorCode},
		{"CME with code", "+CME ERROR: 10", modem.StatusCMEError, 10},
		{"CMS with code", "+CMS ERROR: 500", modem.StatusCMSError, 500},
		{"CME without numeric code", "+CME ERROR: SIM not inserted", modem.StatusCMEError, modem.NoErrorCode},
		{"CME wins over OK", "+CME ERROR: 100\nOK", modem.StatusCMEError, 100},
		{"CME wins over ERROR", "ERROR\n+CME ERROR: 100", modem.StatusCMEError, 100},
		{"CMS wins over ERROR", "ERROR\n+CMS ERROR: 321", modem.StatusCMSError, 321},
		{"CME wins over CMS", "+CMS ERROR: 321\n+CME ERROR: 100", modem.StatusCMEError, 100},
		{"ERROR wins over OK", "OK\nERROR", modem.StatusError, modem.NoErrorCode},
		{"no final marker", "+CSQ: 18,99", modem.StatusTimeout, modem.NoErrorCode},
		{"empty text", "", modem.StatusTimeout, modem.NoErrorCode},
		{"whitespace around markers", "  OK  ", modem.StatusSuccess, modem.NoErrorCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := modem.ClassifyResponse(tt.raw)
			if status != tt.wantStatus {
				t.Errorf("ClassifyResponse(%q) status = %s, want %s", tt.raw, status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("ClassifyResponse(%q) code = %d, want %d", tt.raw, code, tt.wantCode)
			}
		})
	}
}

func TestResponseBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips final OK", "+CSQ: 18,99\n\nOK", "+CSQ: 18,99"},
		{"strips ERROR", "ERROR", ""},
		{"keeps data lines", "line one\nline two\nOK", "line one\nline two"},
		{"empty raw", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := modem.CommandResponse{Raw: tt.raw}
			if got := r.Body(); got != tt.want {
				t.Errorf("Body() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseSuccessful(t *testing.T) {
	if !(modem.CommandResponse{Status: modem.StatusSuccess}).Successful() {
		t.Error("success status should report successful")
	}
	for _, s := range []modem.Status{modem.StatusError, modem.StatusCMEError, modem.StatusCMSError, modem.StatusTimeout} {
		if (modem.CommandResponse{Status: s}).Successful() {
			t.Errorf("%s status should not report successful", s)
		}
	}
}
