package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCursorRoundTrip(t *testing.T) {
	sortAt := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	encoded, err := EncodeRunCursor(sortAt, "42")
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeRunCursor(encoded)
	require.NoError(t, err)
	require.True(t, sortAt.Equal(decoded.SortAt))
	require.Equal(t, "42", decoded.ID)
}

func TestDecodeRunCursorRejectsEmptyString(t *testing.T) {
	_, err := DecodeRunCursor("")
	require.Error(t, err)
}

func TestDecodeRunCursorRejectsInvalidBase64(t *testing.T) {
	_, err := DecodeRunCursor("not-valid-base64!!!")
	require.Error(t, err)
}

func TestDecodeRunCursorRejectsMissingFields(t *testing.T) {
	encoded, err := EncodeRunCursor(time.Time{}, "42")
	require.NoError(t, err)
	_, err = DecodeRunCursor(encoded)
	require.Error(t, err, "zero SortAt should be rejected")

	encoded, err = EncodeRunCursor(time.Now(), "")
	require.NoError(t, err)
	_, err = DecodeRunCursor(encoded)
	require.Error(t, err, "empty ID should be rejected")
}
