package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const warrantyJSON = `{
	"purchaseDate": "2024-03-01T00:00:00Z",
	"order": {"id": 42, "paymentType": "cash",
		"items": [{"name": "Laptop", "sn": "SN1", "price": "1200.00", "quantity": 1, "warranty": 24}]},
	"company": {"companyName": "Acme", "uic": "204567891"}
}`

func withInput(t *testing.T, input string) {
	t.Helper()
	prev := renderOpts.input
	renderOpts.input = input
	t.Cleanup(func() { renderOpts.input = prev })
}

func TestParseVariantFlag(t *testing.T) {
	cases := map[string]domain.InvoiceVariants{
		"":           {Original: true, Copy: true},
		"both":       {Original: true, Copy: true},
		" Original ": {Original: true},
		"copy":       {Copy: true},
		"COPY":       {Copy: true},
	}
	for in, want := range cases {
		got, err := parseVariantFlag(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseVariantFlag("duplicate")
	assert.ErrorContains(t, err, `unknown variant "duplicate"`)
}

func TestReadRequestRequiresInput(t *testing.T) {
	withInput(t, "")
	var req domain.WarrantyRequest
	err := readRequest(strings.NewReader(warrantyJSON), &req)
	assert.ErrorContains(t, err, "either --input or --order is required")
}

func TestReadRequestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order-42.json")
	require.NoError(t, os.WriteFile(path, []byte(warrantyJSON), 0o644))
	withInput(t, path)

	var req domain.WarrantyRequest
	require.NoError(t, readRequest(strings.NewReader("ignored"), &req))
	assert.Equal(t, int64(42), req.Order.ID)
	require.Len(t, req.Order.Items, 1)
	assert.Equal(t, "SN1", req.Order.Items[0].SerialNumber)
	assert.Equal(t, 2024, req.PurchaseDate.Year())
}

func TestReadRequestFromStdin(t *testing.T) {
	withInput(t, "-")
	body := `{"number": 7, "order": {"id": 9, "items": "[{\"name\":\"Cable\",\"price\":\"5\",\"quantity\":2}]"},
		"company": {"companyName": "Acme", "uic": "204567891"}, "client": {"firstName": "Ivan"}}`

	var req domain.InvoiceRequest
	require.NoError(t, readRequest(strings.NewReader(body), &req))
	assert.Equal(t, int64(7), req.Number)
	require.Len(t, req.Order.Items, 1)
	assert.Equal(t, int64(2), req.Order.Items[0].Quantity)
}

func TestReadRequestErrors(t *testing.T) {
	withInput(t, filepath.Join(t.TempDir(), "missing.json"))
	var req domain.WarrantyRequest
	err := readRequest(nil, &req)
	assert.ErrorIs(t, err, os.ErrNotExist)

	withInput(t, "-")
	err = readRequest(strings.NewReader("{not json"), &req)
	assert.ErrorContains(t, err, "decode request")

	err = readRequest(strings.NewReader(`{"order": {"items": "oops"}}`), &req)
	assert.Equal(t, domain.CodeInvalidItems, domain.Code(err))
}

func TestWriteJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"pages": 2}))
	assert.Equal(t, "{\n  \"pages\": 2\n}\n", buf.String())
}
