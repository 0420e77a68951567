package model

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceStreamerReplaysThenEOF(t *testing.T) {
	s := NewSliceStreamer([]Item{TextDelta{Text: "a"}, Final{}}, nil)

	it, err := s.Recv()
	require.NoError(t, err)
	require.Equal(t, TextDelta{Text: "a"}, it)
	it, err = s.Recv()
	require.NoError(t, err)
	require.Equal(t, Final{}, it)

	_, err = s.Recv()
	require.ErrorIs(t, err, io.EOF)
	_, err = s.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceStreamerTerminalError(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStreamer([]Item{TextDelta{Text: "a"}}, boom)

	_, err := s.Recv()
	require.NoError(t, err)
	_, err = s.Recv()
	require.ErrorIs(t, err, boom)
}

func TestSliceStreamerClosed(t *testing.T) {
	s := NewSliceStreamer([]Item{TextDelta{Text: "a"}}, nil)
	require.NoError(t, s.Close())
	_, err := s.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestProviderErrorChain(t *testing.T) {
	cause := errors.New("overloaded")
	pe := NewProviderError("anthropic", "messages.stream", 529, KindForHTTPStatus(529), "", true, cause)
	wrapped := fmt.Errorf("agent: %w", pe)

	got, ok := AsProviderError(wrapped)
	require.True(t, ok)
	require.Equal(t, ProviderErrorKindUnavailable, got.Kind())
	require.True(t, got.Retryable())
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "anthropic unavailable 529 (messages.stream): overloaded", pe.Error())
}

func TestKindForHTTPStatus(t *testing.T) {
	require.Equal(t, ProviderErrorKindAuth, KindForHTTPStatus(http.StatusUnauthorized))
	require.Equal(t, ProviderErrorKindRateLimited, KindForHTTPStatus(http.StatusTooManyRequests))
	require.Equal(t, ProviderErrorKindInvalidRequest, KindForHTTPStatus(http.StatusBadRequest))
	require.Equal(t, ProviderErrorKindUnknown, KindForHTTPStatus(0))
}

func TestImageFormatMediaType(t *testing.T) {
	require.Equal(t, "image/png", ImageFormatPNG.MediaType())
	require.Equal(t, "image/svg+xml", ImageFormatSVG.MediaType())
}

func TestMessageText(t *testing.T) {
	msg := NewUserMessage(TextContent{Text: "a"}, ImageContent{URL: "u"}, TextContent{Text: "b"})
	require.Equal(t, "ab", msg.Text())
}
