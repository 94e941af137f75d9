package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	for _, s := range []string{"", "PENDING", "done", "unknown"} {
		_, err := ParseStatus(s)
		assert.Error(t, err, "status %q", s)
	}
}
