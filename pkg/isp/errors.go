package isp

// Bootloader-side abort codes, in the 0x0F00xxxx range. Grounded on
// can_isp.py's IspSdoAbortedError.abort_codes table.
const (
	codeInvalidCommand                   = 0x0F000001
	codeSrcAddrError                     = 0x0F000002
	codeDstAddrError                     = 0x0F000003
	codeSrcAddrNotMapped                 = 0x0F000004
	codeDstAddrNotMapped                 = 0x0F000005
	codeCountError                       = 0x0F000006
	codeInvalidSector                    = 0x0F000007
	codeSectorNotBlank                   = 0x0F000008
	codeSectorNotPreparedForWriteOperation = 0x0F000009
	codeCompareError                     = 0x0F00000A
	codeParamError                       = 0x0F00000C
	codeAddrError                        = 0x0F00000D
	codeAddrNotMapped                    = 0x0F00000E
	codeCmdLocked                        = 0x0F00000F
	codeInvalidCode                      = 0x0F000010
	codeCodeReadProtectionEnabled        = 0x0F000013
)

// AbortCodes decodes the well-known bootloader abort codes to names.
var AbortCodes = map[uint32]string{
	codeInvalidCommand:                     "invalid command",
	codeSrcAddrError:                       "source address error",
	codeDstAddrError:                       "destination address error",
	codeSrcAddrNotMapped:                   "source address not mapped",
	codeDstAddrNotMapped:                   "destination address not mapped",
	codeCountError:                         "count error",
	codeInvalidSector:                      "invalid sector",
	codeSectorNotBlank:                     "sector not blank",
	codeSectorNotPreparedForWriteOperation: "sector not prepared for write operation",
	codeCompareError:                       "compare error",
	codeParamError:                         "parameter error",
	codeAddrError:                          "address error",
	codeAddrNotMapped:                      "address not mapped",
	codeCmdLocked:                          "command locked",
	codeInvalidCode:                        "invalid code",
	codeCodeReadProtectionEnabled:          "code read protection enabled",
}
