package dispatch

import (
	"fmt"
	"strings"
)

// Operation selects what a run does with each input item.
type Operation int

const (
	OperationPlaceCall Operation = iota + 1
	OperationGetCall
	OperationGetCallHistory
)

var operationNames = map[Operation]string{
	OperationPlaceCall:      "placeCall",
	OperationGetCall:        "getCall",
	OperationGetCallHistory: "getCallHistory",
}

func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation maps the wire name of an operation to its value.
func ParseOperation(s string) (Operation, error) {
	s = strings.TrimSpace(s)
	for op, name := range operationNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	if _, ok := operationNames[o]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
