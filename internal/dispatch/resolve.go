package dispatch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"revox-adapter/internal/voice"

	"github.com/ttacon/libphonenumber"
)

// DefaultPrompt is used when a placeCall item carries no prompt.
const DefaultPrompt = "You are a helpful voice AI assistant. You eagerly assist users with their questions by providing information from your extensive knowledge. Your responses are concise, to the point, and without any complex formatting or punctuation including emojis, asterisks, or other symbols. You are curious, friendly, and have a sense of humor."

// Pagination defaults for call history.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Parameter names accepted on input items.
const (
	// ParamPhoneNumber must be an international number ("+" and country code)
	// that libphonenumber considers possible. National-format numbers are
	// rejected rather than sent to Revox.
	ParamPhoneNumber = "phoneNumber"
	ParamPrompt      = "prompt"
	ParamForceNow    = "forceNow"
	ParamWebhookURL  = "webhookUrl"
	ParamVoice       = "voice"
	ParamCallID      = "callId"
	ParamPage        = "page"
	ParamPageSize    = "pageSize"
)

// PlaceCallBody is the JSON body of a place-call request.
type PlaceCallBody struct {
	PhoneNumber string     `json:"phone_number"`
	Prompt      string     `json:"prompt"`
	ForceNow    bool       `json:"force_now"`
	WebhookURL  string     `json:"webhook_url,omitempty"`
	Voice       *voice.Ref `json:"voice,omitempty"`
}

// HistoryQuery selects one page of call history.
type HistoryQuery struct {
	Page     int
	PageSize int
}

// ResolvePlaceCall builds the place-call body from raw item parameters.
func ResolvePlaceCall(params map[string]any) (PlaceCallBody, error) {
	phone, ok, err := stringParam(params, ParamPhoneNumber)
	if err != nil {
		return PlaceCallBody{}, err
	}
	phone = strings.TrimSpace(phone)
	if !ok || phone == "" {
		return PlaceCallBody{}, validationErr("%s is required", ParamPhoneNumber)
	}
	if err := checkPhoneNumber(phone); err != nil {
		return PlaceCallBody{}, err
	}

	prompt, ok, err := stringParam(params, ParamPrompt)
	if err != nil {
		return PlaceCallBody{}, err
	}
	if !ok {
		prompt = DefaultPrompt
	}

	forceNow, ok, err := boolParam(params, ParamForceNow)
	if err != nil {
		return PlaceCallBody{}, err
	}
	if !ok {
		forceNow = true
	}

	body := PlaceCallBody{PhoneNumber: phone, Prompt: prompt, ForceNow: forceNow}

	webhookURL, _, err := stringParam(params, ParamWebhookURL)
	if err != nil {
		return PlaceCallBody{}, err
	}
	if s := strings.TrimSpace(webhookURL); s != "" {
		body.WebhookURL = s
	}

	token, _, err := stringParam(params, ParamVoice)
	if err != nil {
		return PlaceCallBody{}, err
	}
	if ref, ok := voice.Decode(token); ok {
		body.Voice = &ref
	}
	return body, nil
}

// ResolveGetCall returns the call id of a getCall item.
func ResolveGetCall(params map[string]any) (string, error) {
	id, ok, err := stringParam(params, ParamCallID)
	if err != nil {
		return "", err
	}
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", validationErr("%s is required", ParamCallID)
	}
	return id, nil
}

// ResolveHistory returns the page selection of a getCallHistory item.
func ResolveHistory(params map[string]any) (HistoryQuery, error) {
	q := HistoryQuery{Page: DefaultPage, PageSize: DefaultPageSize}

	if n, ok, err := intParam(params, ParamPage); err != nil {
		return HistoryQuery{}, err
	} else if ok {
		q.Page = n
	}
	if n, ok, err := intParam(params, ParamPageSize); err != nil {
		return HistoryQuery{}, err
	} else if ok {
		q.PageSize = n
	}

	if q.Page < 1 {
		return HistoryQuery{}, validationErr("%s must be >= 1, got %d", ParamPage, q.Page)
	}
	if q.PageSize < 1 {
		return HistoryQuery{}, validationErr("%s must be >= 1, got %d", ParamPageSize, q.PageSize)
	}
	return q, nil
}

// checkPhoneNumber requires an international number ("+<country><number>").
func checkPhoneNumber(s string) error {
	num, err := libphonenumber.Parse(s, "")
	if err != nil {
		return validationErr("%s %q is not an international number: %v", ParamPhoneNumber, s, err)
	}
	if !libphonenumber.IsPossibleNumber(num) {
		return validationErr("%s %q is not a possible number", ParamPhoneNumber, s)
	}
	return nil
}

func stringParam(params map[string]any, name string) (string, bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, validationErr("%s must be a string", name)
	}
	return s, true, nil
}

func boolParam(params map[string]any, name string) (bool, bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return false, false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false, validationErr("%s must be a boolean", name)
		}
		return parsed, true, nil
	default:
		return false, false, validationErr("%s must be a boolean", name)
	}
}

func intParam(params map[string]any, name string) (int, bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return floatToInt(name, float64(n))
	case int64:
		return floatToInt(name, float64(n))
	case float64:
		return floatToInt(name, n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, validationErr("%s must be an integer", name)
		}
		return floatToInt(name, f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, validationErr("%s must be an integer", name)
		}
		return floatToInt(name, f)
	default:
		return 0, false, validationErr("%s must be an integer", name)
	}
}

// floatToInt accepts integral values within the int32 range.
func floatToInt(name string, f float64) (int, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false, validationErr("%s must be an integer", name)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false, validationErr("%s is out of range", name)
	}
	return int(f), true, nil
}
