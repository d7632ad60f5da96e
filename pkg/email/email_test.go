package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"jane.doe@x.com", "Jane Doe"},
		{"JOHN_q_public@x.com", "John Public"},
		{"cfo@x.com", "Cfo"},
		{"@x.com", "Custodian"},
		{"@", "Custodian"},
		{"dana.reyes", "Dana Reyes"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.addr))
		})
	}
}

func TestLooksValid(t *testing.T) {
	assert.True(t, LooksValid("a@x.com"))
	assert.False(t, LooksValid(""))
	assert.False(t, LooksValid("a@b@x.com"))
	assert.False(t, LooksValid("ax.com"))
	assert.False(t, LooksValid("a@localhost"))
	assert.False(t, LooksValid("a b@x.com"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a@x.com", Normalize("  A@X.Com "))
}
