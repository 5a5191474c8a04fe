package errors

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrDataI is structured context attached to an *Error.
type ErrDataI interface {
	error
	SetData(key string, value interface{})
	GetData(key string) interface{}
	EncodeErrorData() []byte
}

// ErrData is the default ErrDataI: a flat key/value map encoded as JSON.
type ErrData map[string]interface{}

func (e *ErrData) Error() string {
	return fmt.Sprintf(" %v", *e)
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e != nil {
		(*e)[key] = value
	}
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}

// EncodeErrorData returns the JSON form of the data, or an empty slice if it cannot be encoded.
func (e *ErrData) EncodeErrorData() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte{}
	}

	return b
}

// GetErrorData decodes bytes produced by EncodeErrorData. Numbers come back as float64.
func GetErrorData(_ ERR, dataBytes []byte) (ErrDataI, error) {
	data := &ErrData{}

	return data, json.Unmarshal(dataBytes, data)
}
