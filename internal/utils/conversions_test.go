package utils_test

import (
	"testing"

	"github.com/jrsteele09/carpool-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToStringSliceDropsNonStrings(t *testing.T) {
	require.Equal(t, []string{"admin", "driver"}, utils.ToStringSlice([]any{"admin", 3.0, nil, "driver"}))
	require.Equal(t, []string{}, utils.ToStringSlice(nil))
}

func TestFirstOr(t *testing.T) {
	msgs := []string{"", "second"}
	require.Equal(t, "def", utils.FirstOr(msgs, 0, "def"))
	require.Equal(t, "second", utils.FirstOr(msgs, 1, "def"))
	require.Equal(t, "def", utils.FirstOr(msgs, 2, "def"))
	require.Equal(t, "def", utils.FirstOr(nil, -1, "def"))
}
