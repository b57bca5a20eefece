package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHash(t *testing.T) {
	sum, err := CalculateHash([]byte("abc"), "sha256")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	sum, err = CalculateHash([]byte("abc"), "md5")
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", sum)

	_, err = CalculateHash([]byte("abc"), "crc32")
	assert.Error(t, err)
}

func TestValidateUUID(t *testing.T) {
	assert.True(t, ValidateUUID(GenerateUUID()))
	assert.False(t, ValidateUUID("assignment-1"))
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, ReadJSON(req, &dst))

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, ReadJSON(req, &dst))
	assert.Equal(t, "a", dst.Name)
}
