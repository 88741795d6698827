package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "$1,500.00", want: "1500.00"},
		{raw: "-50.00", want: "-50.00"},
		{raw: " 12.3 ", want: "12.30"},
		{raw: "€7", want: "7"},
		{raw: "-$1,234,567.89", want: "-1234567.89"},
		{raw: "1.004", want: "1.004"},
		{raw: "123456789012345678.90", want: "123456789012345678.9"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	for _, raw := range []string{"not_a_number", "$", "12..5", "1e200000", "1e-5000"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, err := ParseAmount(raw)
			require.Error(t, err)
			assert.Equal(t, "Invalid amount format: '"+raw+"'", err.Error())
		})
	}
}

func TestParseAmount_KeepsPrecision(t *testing.T) {
	a, err := ParseAmount("1.004")
	require.NoError(t, err)
	b, err := ParseAmount("1.001")
	require.NoError(t, err)
	assert.Equal(t, "1.004", a.String())
	assert.Equal(t, "1.001", b.String())
	assert.False(t, a.Equal(b))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.Format("2006-01-02"))

	for _, raw := range []string{"02/29/2024", "2023-02-29", "yesterday"} {
		_, err := ParseDate(raw)
		require.Error(t, err)
		assert.Equal(t, "Invalid date format: '"+raw+"'. Use YYYY-MM-DD", err.Error())
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Date":               "date",
		"  Description  ":    "description",
		"\uFEFFAmount":       "amount",
		"Posted   Date":      "posted_date",
		"transaction-amount": "transaction_amount",
		"CATEGORY":           "category",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), "header %q", in)
	}
}

func TestRecordValidate(t *testing.T) {
	header := []string{"date", "description", "amount", "category"}

	create, messages := newRecord(header, []string{"2024-01-01", " Lunch ", "$12.00", " Meals "}).validate()
	require.Empty(t, messages)
	assert.Equal(t, "Lunch", create.Description)
	assert.Equal(t, "Meals", create.Category)

	_, messages = newRecord(header, []string{"", "", ""}).validate()
	assert.Equal(t, []string{"Date is missing", "Description is missing", "Amount is missing"}, messages)

	_, messages = newRecord(header, []string{"2024-13-01", "Lunch", "abc"}).validate()
	assert.Equal(t, []string{"Invalid date format: '2024-13-01'. Use YYYY-MM-DD"}, messages)

	_, messages = newRecord(header, []string{"2024-01-01", "Lunch\x00", "1.00", "Me\xffals"}).validate()
	assert.Equal(t, []string{"Description contains invalid characters", "Category contains invalid characters"}, messages)
}

func TestRecordSanitized(t *testing.T) {
	rec := record{"descr\xffiption": "a\x00b\xfe", "amount": "1.00"}
	assert.Equal(t, map[string]string{
		"descr\uFFFDiption": "ab\uFFFD",
		"amount":            "1.00",
	}, rec.sanitized())
}
