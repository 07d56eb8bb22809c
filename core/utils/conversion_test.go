package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailingID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gid://shopify/Customer/123", "123"},
		{"gid://shopify/MailingAddress/55?model_name=CustomerAddress", "55"},
		{"987", "987"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TrailingID(tt.in), tt.in)
	}
}

func TestGlobalID(t *testing.T) {
	assert.Equal(t, "gid://shopify/Customer/1", GlobalID("Customer", "1"))
	assert.Equal(t, "gid://shopify/Customer/1", GlobalID("Customer", "gid://shopify/Customer/1"))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"vip", "wholesale"}, SplitTags("vip, wholesale, "))
	assert.Nil(t, SplitTags("  "))
}

func TestParseOrderNumber(t *testing.T) {
	assert.Equal(t, int64(1001), ParseOrderNumber("#1001"))
	assert.Equal(t, int64(42), ParseOrderNumber("42"))
	assert.Equal(t, int64(0), ParseOrderNumber("#draft"))
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "", FormatID(0))
	assert.Equal(t, "7", FormatID(7))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "żó", Truncate("żółw", 2))
}
