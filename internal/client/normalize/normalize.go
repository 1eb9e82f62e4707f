package normalize

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/smartaccess/internal/client/transport"
)

// Expect tunes normalization for a particular endpoint.
type Expect struct {
	// NotFoundAsEmpty turns an HTTP 404 into a Success with a nil payload,
	// for list-like endpoints that report "nothing yet" that way.
	NotFoundAsEmpty bool
}

// envelopeKeys may sit next to "data" without making it ambiguous.
var envelopeKeys = map[string]struct{}{
	"code":      {},
	"msg":       {},
	"message":   {},
	"status":    {},
	"success":   {},
	"timestamp": {},
}

// Normalize maps a transport outcome to a Response. sendErr is the error
// returned alongside raw by the transport; raw is ignored when it is set.
func Normalize(raw *transport.RawResult, sendErr error, expect Expect) Response {
	if sendErr != nil || raw == nil {
		return fromSendError(sendErr)
	}

	status := raw.HTTPStatus
	success := status >= 200 && status <= 299

	if mediaType := mediaTypeOf(raw.ContentType); success && strings.HasPrefix(mediaType, "image/") {
		return Response{
			Kind:       KindSuccess,
			HTTPStatus: status,
			Payload:    "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw.Body),
			ImageType:  mediaType,
		}
	}

	if expect.NotFoundAsEmpty && status == http.StatusNotFound {
		return Response{Kind: KindSuccess, HTTPStatus: status}
	}

	doc, err := decode(raw.Body)
	if err != nil {
		if success {
			return Response{
				Kind:       KindParseWarning,
				HTTPStatus: status,
				Note:       fmt.Sprintf("response body could not be decoded: %v", err),
			}
		}
		return Response{
			Kind:       KindAPIError,
			HTTPStatus: status,
			Code:       strconv.Itoa(status),
			Message:    genericMessage(status),
		}
	}

	if code, ok := embeddedCode(doc); ok && code != http.StatusOK && code != http.StatusCreated {
		return Response{
			Kind:       KindAPIError,
			HTTPStatus: status,
			Body:       doc,
			Code:       strconv.Itoa(code),
			Message:    extractMessage(doc),
		}
	}

	if !success {
		msg := extractMessage(doc)
		if msg == "" {
			msg = genericMessage(status)
		}
		return Response{
			Kind:       KindAPIError,
			HTTPStatus: status,
			Body:       doc,
			Code:       strconv.Itoa(status),
			Message:    msg,
		}
	}

	return Response{
		Kind:       KindSuccess,
		HTTPStatus: status,
		Body:       doc,
		Payload:    unwrapData(doc),
	}
}

func fromSendError(err error) Response {
	if err == nil {
		err = errors.New("no response")
	}
	kind, ok := transport.KindOf(err)
	if !ok {
		kind = transport.KindNetwork
	}
	return Response{
		Kind:    KindAPIError,
		Code:    string(kind),
		Message: err.Error(),
	}
}

func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return doc, nil
}

// embeddedCode finds an integer top-level "code". Fractional, out of range
// or non-numeric codes are not status codes and are ignored.
func embeddedCode(doc any) (int, bool) {
	m, ok := doc.(map[string]any)
	if !ok {
		return 0, false
	}
	var text string
	switch v := m["code"].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}

func unwrapData(doc any) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	data, ok := m["data"]
	if !ok {
		return doc
	}
	for k := range m {
		if k == "data" {
			continue
		}
		if _, envelope := envelopeKeys[k]; !envelope {
			return doc
		}
	}
	return data
}

func genericMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("request failed: %d %s", status, text)
	}
	return fmt.Sprintf("request failed with status %d", status)
}
