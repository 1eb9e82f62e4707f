package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/smartaccess/internal/client/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(status int, contentType, body string) *transport.RawResult {
	return &transport.RawResult{HTTPStatus: status, ContentType: contentType, Body: []byte(body)}
}

func TestNormalize_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "timeout", err: &transport.Error{Kind: transport.KindTimeout, Err: context.DeadlineExceeded}, want: "TIMEOUT"},
		{name: "cancelled", err: &transport.Error{Kind: transport.KindCancelled, Err: context.Canceled}, want: "CANCELLED"},
		{name: "network", err: &transport.Error{Kind: transport.KindNetwork, Err: errors.New("refused")}, want: "NETWORK"},
		{name: "wrapped", err: fmt.Errorf("send: %w", &transport.Error{Kind: transport.KindTimeout}), want: "TIMEOUT"},
		{name: "foreign error", err: errors.New("create request: bad url"), want: "NETWORK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(nil, tt.err, Expect{})

			assert.Equal(t, KindAPIError, r.Kind)
			assert.Equal(t, tt.want, r.Code)
			assert.True(t, r.Ambiguous())
			assert.False(t, r.OK())
		})
	}
}

func TestNormalize_Image(t *testing.T) {
	r := Normalize(raw(http.StatusOK, "image/png", "\x89PNG"), nil, Expect{})

	require.Equal(t, KindSuccess, r.Kind)
	assert.Equal(t, "image/png", r.ImageType)
	assert.Equal(t, "data:image/png;base64,iVBORw==", r.Payload)
}

func TestNormalize_ImageWithParams(t *testing.T) {
	r := Normalize(raw(http.StatusCreated, "image/svg+xml; charset=utf-8", "<svg/>"), nil, Expect{})

	require.Equal(t, KindSuccess, r.Kind)
	assert.Equal(t, "image/svg+xml", r.ImageType)
	assert.Contains(t, r.Payload, "data:image/svg+xml;base64,")
}

func TestNormalize_NotFoundAsEmpty(t *testing.T) {
	r := Normalize(raw(http.StatusNotFound, "application/json", `{"message":"no members"}`), nil, Expect{NotFoundAsEmpty: true})
	assert.Equal(t, KindSuccess, r.Kind)
	assert.Nil(t, r.Payload)

	r = Normalize(raw(http.StatusNotFound, "application/json", `{"message":"no members"}`), nil, Expect{})
	assert.Equal(t, KindAPIError, r.Kind)
	assert.Equal(t, "404", r.Code)
	assert.Equal(t, "no members", r.Message)
}

func TestNormalize_ParseFailure(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantCode string
	}{
		{name: "201 garbage", status: 201, body: "Created!", wantKind: KindParseWarning},
		{name: "200 empty", status: 200, body: "", wantKind: KindParseWarning},
		{name: "204 empty", status: 204, body: "", wantKind: KindParseWarning},
		{name: "500 html", status: 500, body: "<html>oops</html>", wantKind: KindAPIError, wantCode: "500"},
		{name: "502 empty", status: 502, body: "", wantKind: KindAPIError, wantCode: "502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(raw(tt.status, "text/plain", tt.body), nil, Expect{})

			assert.Equal(t, tt.wantKind, r.Kind)
			assert.Equal(t, tt.status, r.HTTPStatus)
			assert.Equal(t, tt.wantCode, r.Code)
			if tt.wantKind == KindParseWarning {
				assert.True(t, r.OK())
				assert.NotEmpty(t, r.Note)
				assert.NoError(t, r.Err())
			} else {
				assert.NotEmpty(t, r.Message)
				assert.Error(t, r.Err())
			}
		})
	}
}

func TestNormalize_EmbeddedCode(t *testing.T) {
	t.Run("failure inside a 200 envelope", func(t *testing.T) {
		r := Normalize(raw(200, "application/json", `{"code":400,"msg":"bad"}`), nil, Expect{})

		require.Equal(t, KindAPIError, r.Kind)
		assert.Equal(t, "400", r.Code)
		assert.Equal(t, 400, r.StatusCode())
		assert.Equal(t, "bad", r.Message)
		assert.False(t, r.Ambiguous())

		var apiErr *APIError
		require.ErrorAs(t, r.Err(), &apiErr)
		assert.Equal(t, "400", apiErr.Code)
		assert.Equal(t, 200, apiErr.HTTPStatus)
	})

	t.Run("string code", func(t *testing.T) {
		r := Normalize(raw(201, "application/json", `{"code":"409","message":"exists"}`), nil, Expect{})
		assert.Equal(t, KindAPIError, r.Kind)
		assert.Equal(t, "409", r.Code)
		assert.Equal(t, "exists", r.Message)
	})

	for _, ok := range []string{`200`, `201`, `"200"`} {
		t.Run("success code "+ok, func(t *testing.T) {
			r := Normalize(raw(200, "application/json", `{"code":`+ok+`,"data":{"id":1}}`), nil, Expect{})
			assert.Equal(t, KindSuccess, r.Kind)
		})
	}

	t.Run("non-numeric code ignored", func(t *testing.T) {
		r := Normalize(raw(200, "application/json", `{"code":"QR_READY","url":"x"}`), nil, Expect{})
		assert.Equal(t, KindSuccess, r.Kind)
	})

	for _, odd := range []string{`200.5`, `400.0`, `1e30`, `99999999999999999999`, `"4.5"`} {
		t.Run("non-integer code ignored "+odd, func(t *testing.T) {
			r := Normalize(raw(200, "application/json", `{"code":`+odd+`,"data":{"id":1}}`), nil, Expect{})
			assert.Equal(t, KindSuccess, r.Kind)
			assert.Empty(t, r.Message)
		})
	}
}

func TestNormalize_HTTPErrorWithBody(t *testing.T) {
	r := Normalize(raw(401, "application/json", `{"error":"invalid credentials"}`), nil, Expect{})

	assert.Equal(t, KindAPIError, r.Kind)
	assert.Equal(t, "401", r.Code)
	assert.Equal(t, "invalid credentials", r.Message)
}

func TestNormalize_DataUnwrap(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "sole data key", body: `{"data":{"token":"abc"}}`, want: `{"token":"abc"}`},
		{name: "data with envelope keys", body: `{"code":200,"message":"ok","data":{"token":"abc"}}`, want: `{"token":"abc"}`},
		{name: "data next to real fields", body: `{"data":{"a":1},"user":{"id":1}}`, want: `{"data":{"a":1},"user":{"id":1}}`},
		{name: "flat", body: `{"token":"abc","user":{"id":7}}`, want: `{"token":"abc","user":{"id":7}}`},
		{name: "array", body: `[1,2]`, want: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(raw(200, "application/json", tt.body), nil, Expect{})
			require.Equal(t, KindSuccess, r.Kind)

			got, err := json.Marshal(r.Payload)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			// Body always keeps the full document
			full, err := json.Marshal(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(full))
		})
	}
}

func TestNormalize_TrailingGarbageIsParseFailure(t *testing.T) {
	r := Normalize(raw(201, "application/json", `{"id":1} trailing`), nil, Expect{})
	assert.Equal(t, KindParseWarning, r.Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "api_error", KindAPIError.String())
	assert.Equal(t, "parse_warning", KindParseWarning.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
