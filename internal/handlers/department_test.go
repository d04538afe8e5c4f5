package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeleteReason(t *testing.T) {
	// The deletion reason is optional: deleting with no body, an empty
	// object, or a blank reason must all succeed with no reason recorded.
	for name, body := range map[string]string{
		"empty body":   "",
		"empty object": `{}`,
		"blank reason": `{"reason": "   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			reason, err := decodeDeleteReason(strings.NewReader(body))
			require.NoError(t, err)
			assert.Empty(t, reason)
		})
	}

	reason, err := decodeDeleteReason(strings.NewReader(`{"reason": " Restructure "}`))
	require.NoError(t, err)
	assert.Equal(t, "Restructure", reason)

	_, err = decodeDeleteReason(strings.NewReader(`{"reason": `))
	assert.Error(t, err, "malformed JSON is still rejected")
}
