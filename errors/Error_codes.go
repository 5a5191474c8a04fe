package errors

import "fmt"

// ERR is the numeric code carried by every *Error.
type ERR int32

//nolint:revive,stylecheck // upper case names mirror the persisted representation of the codes
const (
	ERR_UNKNOWN                 ERR = 0
	ERR_INVALID_ARGUMENT        ERR = 1
	ERR_THRESHOLD_EXCEEDED      ERR = 2
	ERR_NOT_FOUND               ERR = 3
	ERR_PROCESSING              ERR = 4
	ERR_CONFIGURATION           ERR = 5
	ERR_CONTEXT                 ERR = 6
	ERR_CONTEXT_CANCELED        ERR = 7
	ERR_ERROR                   ERR = 9
	ERR_BLOCK_NOT_FOUND         ERR = 10
	ERR_BLOCK_INVALID           ERR = 11
	ERR_BLOCK_EXISTS            ERR = 12
	ERR_BLOCK_ERROR             ERR = 13
	ERR_TX_NOT_FOUND            ERR = 30
	ERR_TX_INVALID              ERR = 31
	ERR_TX_INVALID_DOUBLE_SPEND ERR = 32
	ERR_TX_ALREADY_EXISTS       ERR = 33
	ERR_TX_ERROR                ERR = 34
	ERR_SERVICE_UNAVAILABLE     ERR = 40
	ERR_SERVICE_ERROR           ERR = 41
	ERR_STORAGE_UNAVAILABLE     ERR = 50
	ERR_STORAGE_ERROR           ERR = 51
	ERR_SPENT                   ERR = 60
	ERR_INSUFFICIENT_FUNDS      ERR = 70
	ERR_INVALID_ADDRESS         ERR = 71
	ERR_CHAIN_NOT_INITIALIZED   ERR = 72
)

// ERR_name maps every known code to its name. Codes missing from this map are rejected by New.
var ERR_name = map[int32]string{ //nolint:revive,stylecheck
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "THRESHOLD_EXCEEDED",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	10: "BLOCK_NOT_FOUND",
	11: "BLOCK_INVALID",
	12: "BLOCK_EXISTS",
	13: "BLOCK_ERROR",
	30: "TX_NOT_FOUND",
	31: "TX_INVALID",
	32: "TX_INVALID_DOUBLE_SPEND",
	33: "TX_ALREADY_EXISTS",
	34: "TX_ERROR",
	40: "SERVICE_UNAVAILABLE",
	41: "SERVICE_ERROR",
	50: "STORAGE_UNAVAILABLE",
	51: "STORAGE_ERROR",
	60: "SPENT",
	70: "INSUFFICIENT_FUNDS",
	71: "INVALID_ADDRESS",
	72: "CHAIN_NOT_INITIALIZED",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return fmt.Sprintf("ERR(%d)", int32(x))
}
