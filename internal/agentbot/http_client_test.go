// ABOUTME: Tests for the HTTP agent client's wire contract: content-part
// ABOUTME: wrapped prompts on the way out, answer/text scanning on the way in.

package agentbot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndPoll_WrapsPromptAsContentParts(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", "bot1")
	_, err := c.SendAndPoll(t.Context(), "conv1", "u1", "hello")
	require.NoError(t, err)

	require.Len(t, gotReq.Content, 1)
	assert.Equal(t, "text", gotReq.Content[0].Type)
	assert.Equal(t, "hello", gotReq.Content[0].Text)
	assert.True(t, gotReq.AutoSaveHistory)
}

func TestSendAndPoll_ReturnsFirstAnswerTextMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{Messages: []chatMessage{
			{Type: "function_call", ContentType: "text", Content: "ignored"},
			{Type: "answer", ContentType: "text", Content: "the real reply"},
			{Type: "answer", ContentType: "text", Content: "a later answer"},
		}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", "bot1")
	reply, err := c.SendAndPoll(t.Context(), "conv1", "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "the real reply", reply)
}

func TestSendAndPoll_NoAnswerMessageReturnsNoReplySentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{Messages: []chatMessage{
			{Type: "function_call", ContentType: "text", Content: "ignored"},
		}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", "bot1")
	reply, err := c.SendAndPoll(t.Context(), "conv1", "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, noReplyText, reply)
}
