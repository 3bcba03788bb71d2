package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const salonWrite = `{
	"business_id": "biz-1",
	"business_hours": {"monday": {"isOpen": true, "openTime": "09:00", "closeTime": "17:00"}},
	"staff": [{"id": "st-1", "first_name": "Ana", "last_name": "Silva", "business_id": "biz-1"}],
	"staff_hours": {"st-1": {"monday": {"isOpen": true, "openTime": "09:00", "closeTime": "12:00"}}},
	"services": [{"id": "svc-1", "business_id": "biz-1", "title": "Cut", "price": 25, "duration": {"hours": 0, "minutes": 45}}]
}`

func TestDecodeSingleWrite(t *testing.T) {
	writes, err := decodeWrites(strings.NewReader(salonWrite))
	require.NoError(t, err)
	require.Len(t, writes, 1)

	w := writes[0]
	require.Equal(t, "biz-1", w.BusinessID)
	require.True(t, w.BusinessHours["monday"].IsOpen)
	require.Equal(t, "12:00", w.StaffHours["st-1"]["monday"].CloseTime)
	require.Equal(t, 45, w.Services[0].Duration.TotalMinutes())
	require.NoError(t, w.Validate())
}

func TestDecodeArray(t *testing.T) {
	writes, err := decodeWrites(strings.NewReader("[" + salonWrite + `, {"business_id": "biz-2"}]`))
	require.NoError(t, err)
	require.Len(t, writes, 2)
	require.Equal(t, "biz-2", writes[1].BusinessID)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "  ",
		"empty array":   "[]",
		"unknown field": `{"business_id": "biz-1", "owner": "x"}`,
		"not json":      "business_id=biz-1",
	}
	for name, in := range cases {
		if _, err := decodeWrites(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
