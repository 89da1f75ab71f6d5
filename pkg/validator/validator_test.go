package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineStruct struct {
	ItemID   string `validate:"required"`
	Quantity int64  `validate:"gt=0"`
}

type orderStruct struct {
	Subject string       `validate:"required"`
	Items   []lineStruct `validate:"required,min=1,dive"`
}

func TestValidate_Success(t *testing.T) {
	s := orderStruct{Subject: "user1", Items: []lineStruct{{ItemID: "item1", Quantity: 2}}}
	assert.NoError(t, Validate(s))
}

func TestValidate_MissingRequired(t *testing.T) {
	s := orderStruct{Items: []lineStruct{{ItemID: "item1", Quantity: 2}}}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["Subject"])
}

func TestValidate_NestedField(t *testing.T) {
	s := orderStruct{Subject: "user1", Items: []lineStruct{{ItemID: "item1", Quantity: 0}}}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be greater than 0", valErr.Fields()["Items[0].Quantity"])
	assert.Contains(t, err.Error(), "Quantity")
}

func TestValidate_EmptySlice(t *testing.T) {
	s := orderStruct{Subject: "user1", Items: []lineStruct{}}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Items"], "at least 1")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Subject":"user1","Items":[{"ItemID":"item1","Quantity":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s orderStruct
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "user1", s.Subject)
	assert.Equal(t, int64(3), s.Items[0].Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s orderStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Subject":"u","Bogus":1}`))

	var s orderStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Subject":""}`))

	var s orderStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
