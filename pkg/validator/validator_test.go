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

type cardForm struct {
	Number string `validate:"required,len=16,digits"`
	CVV    string `validate:"required,len=3,digits"`
}

type lineForm struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=999"`
	Type     string `json:"type" validate:"omitempty,oneof=dine-in takeaway delivery"`
}

type upiForm struct {
	Handle string `validate:"required,upi"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_CardFormValid(t *testing.T) {
	assert.NoError(t, Validate(cardForm{Number: "4111111111111111", CVV: "123"}))
}

func TestValidate_CardNumberWithLetters(t *testing.T) {
	fields := fieldsOf(t, Validate(cardForm{Number: "4111-1111-1111-1", CVV: "123"}))
	assert.Equal(t, "must contain only digits", fields["Number"])
}

func TestValidate_CardNumberWrongLength(t *testing.T) {
	fields := fieldsOf(t, Validate(cardForm{Number: "411111111111", CVV: "12"}))
	assert.Equal(t, "must be exactly 16 characters", fields["Number"])
	assert.Equal(t, "must be exactly 3 characters", fields["CVV"])
}

func TestValidate_UPIHandle(t *testing.T) {
	assert.NoError(t, Validate(upiForm{Handle: "diner@okbank"}))

	for _, bad := range []string{"diner", "@okbank", "diner@"} {
		fields := fieldsOf(t, Validate(upiForm{Handle: bad}))
		assert.Contains(t, fields["Handle"], "UPI", bad)
	}
}

func TestValidate_RangeAndOneOf(t *testing.T) {
	fields := fieldsOf(t, Validate(lineForm{ItemID: "ITEM001", Quantity: 0, Type: "drive-thru"}))
	assert.Contains(t, fields["Quantity"], "greater than or equal to 1")
	assert.Contains(t, fields["Type"], "one of")
}

func TestValidate_MissingRequired(t *testing.T) {
	fields := fieldsOf(t, Validate(lineForm{Quantity: 1}))
	assert.Equal(t, "is required", fields["ItemID"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(cardForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Number'")
	assert.Contains(t, err.Error(), "is required")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("123456", "len=6,digits"))
	assert.Error(t, Var("12a456", "len=6,digits"))
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"item_id":"ITEM001","quantity":2,"type":"takeaway"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var f lineForm
	require.NoError(t, DecodeAndValidate(req, &f))
	assert.Equal(t, "ITEM001", f.ItemID)
	assert.Equal(t, 2, f.Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var f lineForm
	err := DecodeAndValidate(req, &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_id":"ITEM001","quantity":1,"price":0}`))

	var f lineForm
	err := DecodeAndValidate(req, &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_id":"","quantity":1}`))

	var f lineForm
	err := DecodeAndValidate(req, &f)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
