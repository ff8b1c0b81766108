package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(ReqLogin, Credentials{Email: "a@example.com", Password: "pw", EncryptionKey: "k"})
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, ReqLogin, req.Type)
	assert.JSONEq(t, `{"email":"a@example.com","password":"pw","encryptionKey":"k"}`, string(req.Payload))

	other, err := NewRequest(ReqLogin, nil)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, other.ID, "each request gets its own correlation ID")
	assert.Empty(t, other.Payload)
}

func TestRequestDecodePayload(t *testing.T) {
	req, err := NewRequest(ReqRegister, Registration{Email: "b@example.com", Password: "secret"})
	require.NoError(t, err)

	data, err := req.Encode()
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req.ID, decoded.ID)

	var reg Registration
	require.NoError(t, decoded.DecodePayload(&reg))
	assert.Equal(t, "b@example.com", reg.Email)
	assert.Equal(t, "secret", reg.Password)

	empty, err := NewRequest(ReqRegister, nil)
	require.NoError(t, err)
	assert.Error(t, empty.DecodePayload(&reg))
}

func TestDecodeRequestRejectsMissingType(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"id":"1"}`))
	assert.Error(t, err)

	_, err = DecodeRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoginResultWireFormat(t *testing.T) {
	req, err := NewRequest(ReqLogin, nil)
	require.NoError(t, err)

	resp, err := NewOKResponse(req, &LoginResult{
		Result: Result{OK: false, Message: "bad key"},
		Fields: &FieldStatus{Email: true, Password: true, EncryptionKey: false},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, req.ID, resp.ID)
	assert.JSONEq(t,
		`{"ok":false,"message":"bad key","fields":{"email":true,"password":true,"encryptionKey":false}}`,
		string(resp.Data))

	data, err := resp.Encode()
	require.NoError(t, err)
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)

	var result LoginResult
	require.NoError(t, decoded.DecodeData(&result))
	assert.False(t, result.OK)
	require.NotNil(t, result.Fields)
	assert.False(t, result.Fields.EncryptionKey)
}

func TestErrorResponse(t *testing.T) {
	req, err := NewRequest(ReqRequestWallet, nil)
	require.NoError(t, err)

	resp := NewErrorResponse(req, "helper not configured")
	assert.False(t, resp.Success)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, "helper not configured", resp.Error)

	anon := NewErrorResponse(nil, "invalid request format")
	assert.Empty(t, anon.ID)
}

func TestDecodeDataWithoutData(t *testing.T) {
	resp := &Response{Success: true}
	result := WalletResult{Address: "keep"}
	require.NoError(t, resp.DecodeData(&result))
	assert.Equal(t, "keep", result.Address)
}
