package dispatch

import (
	"net/http"
	"net/url"
	"strconv"

	"revox-adapter/internal/revox"
)

// command is one resolved operation for a single item: the request to send
// and how to turn the response into output records.
type command interface {
	request() revox.Request
	shape(resp map[string]any) ([]map[string]any, error)
}

func resolve(op Operation, params map[string]any) (command, error) {
	switch op {
	case OperationPlaceCall:
		body, err := ResolvePlaceCall(params)
		if err != nil {
			return nil, err
		}
		return placeCall{body: body}, nil
	case OperationGetCall:
		id, err := ResolveGetCall(params)
		if err != nil {
			return nil, err
		}
		return getCall{callID: id}, nil
	case OperationGetCallHistory:
		q, err := ResolveHistory(params)
		if err != nil {
			return nil, err
		}
		return callHistory{query: q}, nil
	default:
		return nil, ErrUnknownOperation
	}
}

type placeCall struct {
	body PlaceCallBody
}

func (c placeCall) request() revox.Request {
	return revox.Request{Method: http.MethodPost, Path: revox.PathCall, Body: c.body}
}

// The whole response is the result.
func (c placeCall) shape(resp map[string]any) ([]map[string]any, error) {
	return []map[string]any{resp}, nil
}

type getCall struct {
	callID string
}

func (c getCall) request() revox.Request {
	return revox.Request{Method: http.MethodGet, Path: revox.PathCall + "/" + url.PathEscape(c.callID)}
}

func (c getCall) shape(resp map[string]any) ([]map[string]any, error) {
	call, ok := resp["call"].(map[string]any)
	if !ok {
		return nil, shapeErr("get call response has no call object")
	}
	return []map[string]any{call}, nil
}

type callHistory struct {
	query HistoryQuery
}

func (c callHistory) request() revox.Request {
	return revox.Request{
		Method: http.MethodGet,
		Path:   revox.PathCall,
		Query: url.Values{
			"page":     {strconv.Itoa(c.query.Page)},
			"pageSize": {strconv.Itoa(c.query.PageSize)},
		},
	}
}

// Each history entry becomes its own record, in API order.
func (c callHistory) shape(resp map[string]any) ([]map[string]any, error) {
	raw, present := resp["calls"]
	if !present {
		return nil, shapeErr("call history response has no calls field")
	}
	calls, ok := raw.([]any)
	if !ok {
		return nil, shapeErr("call history calls is %T, not an array", raw)
	}
	out := make([]map[string]any, 0, len(calls))
	for i, v := range calls {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, shapeErr("call history entry %d is %T, not an object", i, v)
		}
		out = append(out, m)
	}
	return out, nil
}
