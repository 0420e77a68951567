package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/uistream/builder"
	"goa.design/uistream/runtime/uistream/protocol"
	"goa.design/uistream/runtime/uistream/translate"
)

func newTranslator() *translate.Translator {
	n := 0
	return translate.New(builder.New(
		builder.WithMessageID("m1"),
		builder.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("b%d", n)
		}),
	))
}

func TestWriterFramesAndHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.False(t, w.Started())

	src := model.NewSliceStreamer([]model.Item{model.TextDelta{Text: "hi"}, model.Final{}}, nil)
	require.NoError(t, translate.Run(context.Background(), newTranslator(), src, w))
	require.True(t, w.Started())

	res := rec.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, ContentType, res.Header.Get("Content-Type"))
	require.Equal(t, "no-cache", res.Header.Get("Cache-Control"))
	require.Equal(t, "keep-alive", res.Header.Get("Connection"))
	require.Equal(t, StreamVersion, res.Header.Get(StreamHeader))
	require.True(t, rec.Flushed)

	require.Equal(t, ""+
		"data: {\"type\":\"start\",\"messageId\":\"m1\"}\n\n"+
		"data: {\"type\":\"text-start\",\"id\":\"b1\"}\n\n"+
		"data: {\"type\":\"text-delta\",\"id\":\"b1\",\"delta\":\"hi\"}\n\n"+
		"data: {\"type\":\"text-end\",\"id\":\"b1\"}\n\n"+
		"data: {\"type\":\"finish\"}\n\n"+
		"data: [DONE]\n\n", rec.Body.String())
}

func TestWriterStopsWhenClientGone(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter(rec).Send(ctx, protocol.Finish{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, rec.Body.String())
}

func TestWriterRejectsInvalidEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewWriter(rec).Send(context.Background(), protocol.CustomData{})
	require.Error(t, err)
	require.Empty(t, rec.Body.String())
}

func TestDecoderRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	src := model.NewSliceStreamer([]model.Item{
		model.Reasoning{Fragments: []string{"hmm"}},
		model.TextDelta{Text: "answer"},
		model.FinalResponse{Usage: model.TokenUsage{TotalTokens: 3}},
	}, errors.New("cut off"))
	require.NoError(t, translate.Run(context.Background(), newTranslator(), src, NewWriter(rec)))

	evs, err := ReadAll(rec.Body)
	require.NoError(t, err)
	types := make([]protocol.EventType, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type()
	}
	require.Equal(t, []protocol.EventType{
		protocol.TypeStart,
		protocol.TypeReasoningStart,
		protocol.TypeReasoningDelta,
		protocol.TypeReasoningEnd,
		protocol.TypeTextStart,
		protocol.TypeTextDelta,
		"data-usage",
		protocol.TypeError,
		protocol.TypeFinish,
		protocol.TypeDone,
	}, types)
	require.Equal(t, protocol.Error{ErrorText: "cut off"}, evs[7])
}

func TestDecoderSkipsCommentsAndFields(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: message\r\n" +
		"id: 7\r\n" +
		"data:{\"type\":\"finish\"}\r\n\r\n" +
		"data: [DONE]\n\n" +
		"data: {\"type\":\"finish\"}\n\n"
	evs, err := ReadAll(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, []protocol.Event{protocol.Finish{}, protocol.Done{}}, evs)
}

func TestDecoderLastMessageWithoutBlankLine(t *testing.T) {
	evs, err := ReadAll(strings.NewReader("data: {\"type\":\"finish\"}\n\ndata: [DONE]\n"))
	require.NoError(t, err)
	require.Len(t, evs, 2)
}

func TestReadAllTruncated(t *testing.T) {
	evs, err := ReadAll(strings.NewReader("data: {\"type\":\"start\",\"messageId\":\"m\"}\n\n"))
	require.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, []protocol.Event{protocol.Start{MessageID: "m"}}, evs)
}

func TestReadAllDecodeError(t *testing.T) {
	_, err := ReadAll(strings.NewReader("data: {not json}\n\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTruncated)
}
