package at

const (
	// Terminal Control
	CRLF = "\r\n"

	// Final result codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg = "+CMTI:"
	UrcCall   = "RING"
)

// Standard 3GPP identification and status commands. These are vendor
// independent and form the command set the universal parser understands.
const (
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=1"
	CmdManufacturer  = "AT+CGMI"
	CmdModel         = "AT+CGMM"
	CmdRevision      = "AT+CGMR"
	CmdIMEI          = "AT+CGSN"
	CmdSignalQuality = "AT+CSQ"
	CmdOperator      = "AT+COPS?"
	CmdRegistration  = "AT+CREG?"
	CmdSimStatus     = "AT+CPIN?"
	CmdICCID         = "AT+CCID"
	CmdIMSI          = "AT+CIMI"
	CmdPSM           = "AT+CPSMS?"
)

// SIM states reported by AT+CPIN?
const (
	SimReady = "+CPIN: READY"
	SimPin   = "+CPIN: SIM PIN"
)

type ResponseType int

const (
	TypeFinal ResponseType = iota // OK, ERROR, +CME ERROR, ...
	TypeURC                       // Asynchronous notifications
	TypeData                      // Intermediate command output (+CSQ: ...)
)
