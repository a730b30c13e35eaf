package nip47

import (
	"encoding/json"

	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
)

// Info is the decoded form of a wallet service info event.
type Info struct {
	Methods       []string
	Encryptions   []string
	Notifications bool
}

// Request is the decoded form of a request envelope.
type Request struct {
	Method string
	// Params is the raw JSON of the method parameters, "{}" when absent on
	// the wire.
	Params       string
	WalletPubKey string
	Encryption   string
}

// Response is the decoded form of a response envelope. Exactly one of the
// success pair (ResultType, Result) and the error pair (ErrorCode,
// ErrorMessage) is populated.
type Response struct {
	ResultType   string
	Result       string
	ErrorCode    string
	ErrorMessage string
	RequestID    eventid.T
	ClientPubKey string
	Encryption   string
}

type requestContent struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type responseContent struct {
	ResultType string          `json:"result_type,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rawParams renders a params value for the wire. A string is taken to be
// JSON already; anything else is marshalled compactly.
func rawParams(params any) (raw json.RawMessage, err error) {
	switch p := params.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case string:
		return json.RawMessage(p), nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(params)
	}
}

// BuildInfoEvent builds the wallet service capability event (kind 13194).
// One encryption tag is emitted per supported scheme plus exactly one
// notifications tag.
func BuildInfoEvent(methods, encryptions []string,
	notifications bool) (ev *event.T, err error) {

	var content []byte
	if content, err = json.Marshal(struct {
		Methods []string `json:"methods"`
	}{Methods: methods}); chk.E(err) {
		return
	}
	t := tags.T{}
	for _, enc := range encryptions {
		t = append(t, tag.T{"encryption", enc})
	}
	n := "false"
	if notifications {
		n = "true"
	}
	t = append(t, tag.T{"notifications", n})
	return &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.NWCWalletInfo,
		Tags:      t,
		Content:   string(content),
	}, nil
}

// ParseInfoEvent decodes a kind 13194 event.
func ParseInfoEvent(ev *event.T) (info *Info, err error) {
	if ev.Kind != kind.NWCWalletInfo {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.NWCWalletInfo, ev.Kind)
	}
	var body struct {
		Methods []string `json:"methods"`
	}
	if err = json.Unmarshal([]byte(ev.Content), &body); chk.D(err) {
		return nil, log.E.Err("malformed info content: %w", err)
	}
	info = &Info{Methods: body.Methods}
	for _, enc := range ev.Tags.GetAll("encryption") {
		info.Encryptions = append(info.Encryptions, enc.Value())
	}
	if n := ev.Tags.GetFirst(tag.T{"notifications"}); n != nil {
		info.Notifications = n.Value() == "true"
	}
	return
}

// BuildRequest builds an unsigned request envelope (kind 23194) routed to
// the wallet under the negotiated scheme. The content is left in clear;
// the caller encrypts it before signing.
func BuildRequest(method string, params any, walletPubKey,
	encryption string) (ev *event.T, err error) {

	var raw json.RawMessage
	if raw, err = rawParams(params); chk.E(err) {
		return
	}
	var content []byte
	if content, err = json.Marshal(requestContent{
		Method: method,
		Params: raw,
	}); chk.E(err) {
		return
	}
	return &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.NWCWalletRequest,
		Tags: tags.T{
			tag.T{"p", walletPubKey},
			tag.T{"encryption", encryption},
		},
		Content: string(content),
	}, nil
}

// ParseRequest decodes a request envelope whose content has already been
// decrypted. A payload of any other kind is rejected.
func ParseRequest(ev *event.T) (req *Request, err error) {
	if ev.Kind != kind.NWCWalletRequest {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.NWCWalletRequest, ev.Kind)
	}
	var body requestContent
	if err = json.Unmarshal([]byte(ev.Content), &body); chk.D(err) {
		return nil, log.E.Err("malformed request content: %w", err)
	}
	if body.Method == "" {
		return nil, log.E.Err("request has no method")
	}
	req = &Request{Method: body.Method, Params: "{}"}
	if len(body.Params) > 0 {
		req.Params = string(body.Params)
	}
	if p := ev.Tags.GetFirst(tag.T{"p"}); p != nil {
		req.WalletPubKey = p.Value()
	}
	if enc := ev.Tags.GetFirst(tag.T{"encryption"}); enc != nil {
		req.Encryption = enc.Value()
	}
	return
}

// BuildResponse builds an unsigned success response envelope (kind 23195)
// answering the given request event.
func BuildResponse(resultType string, result any, requestID eventid.T,
	clientPubKey, encryption string) (ev *event.T, err error) {

	var raw json.RawMessage
	switch r := result.(type) {
	case nil:
		raw = json.RawMessage("null")
	case string:
		raw = json.RawMessage(r)
	case json.RawMessage:
		raw = r
	default:
		if raw, err = json.Marshal(result); chk.E(err) {
			return
		}
	}
	var content []byte
	if content, err = json.Marshal(responseContent{
		ResultType: resultType,
		Result:     raw,
	}); chk.E(err) {
		return
	}
	return responseEvent(string(content), requestID, clientPubKey,
		encryption), nil
}

// BuildErrorResponse builds an unsigned error response envelope (kind
// 23195) answering the given request event.
func BuildErrorResponse(code, message string, requestID eventid.T,
	clientPubKey, encryption string) (ev *event.T, err error) {

	var content []byte
	if content, err = json.Marshal(responseContent{
		Error: &responseError{Code: code, Message: message},
	}); chk.E(err) {
		return
	}
	return responseEvent(string(content), requestID, clientPubKey,
		encryption), nil
}

func responseEvent(content string, requestID eventid.T, clientPubKey,
	encryption string) *event.T {

	return &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.NWCWalletResponse,
		Tags: tags.T{
			tag.T{"e", requestID.String()},
			tag.T{"p", clientPubKey},
			tag.T{"encryption", encryption},
		},
		Content: content,
	}
}

// ParseResponse decodes a response envelope whose content has already been
// decrypted. The content must carry exactly one of the success and error
// branches; a payload of any other kind is rejected.
func ParseResponse(ev *event.T) (res *Response, err error) {
	if ev.Kind != kind.NWCWalletResponse {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.NWCWalletResponse, ev.Kind)
	}
	var body responseContent
	if err = json.Unmarshal([]byte(ev.Content), &body); chk.D(err) {
		return nil, log.E.Err("malformed response content: %w", err)
	}
	success := body.ResultType != ""
	if success == (body.Error != nil) {
		return nil, log.E.Err(
			"response must carry exactly one of result and error")
	}
	res = &Response{}
	if success {
		res.ResultType = body.ResultType
		if len(body.Result) > 0 {
			res.Result = string(body.Result)
		}
	} else {
		res.ErrorCode = body.Error.Code
		res.ErrorMessage = body.Error.Message
	}
	if e := ev.Tags.GetFirst(tag.T{"e"}); e != nil {
		res.RequestID = eventid.T(e.Value())
	}
	if p := ev.Tags.GetFirst(tag.T{"p"}); p != nil {
		res.ClientPubKey = p.Value()
	}
	if enc := ev.Tags.GetFirst(tag.T{"encryption"}); enc != nil {
		res.Encryption = enc.Value()
	}
	return
}
