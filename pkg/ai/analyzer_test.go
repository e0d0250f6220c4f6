package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/models"
)

// fakeCompletion 构造一个chat completions返回体
func fakeCompletion(t *testing.T, analysis Analysis) []byte {
	t.Helper()
	content, err := json.Marshal(analysis)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": string(content)}},
		},
	})
	require.NoError(t, err)
	return body
}

func TestChatAnalyzer_AnalyzeMessage(t *testing.T) {
	t.Run("parses the structured triple", func(t *testing.T) {
		var gotAuth string
		var gotRequest map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

			w.Header().Set("Content-Type", "application/json")
			w.Write(fakeCompletion(t, Analysis{
				Summary:        "Client needs a dashboard rebuilt before Friday.",
				Priority:       "High",
				RequiredSkills: []string{"react", "ui design"},
			}))
		}))
		defer server.Close()

		analyzer := NewChatAnalyzer(server.URL, "test-key", "test-model")
		analysis, err := analyzer.AnalyzeMessage(context.Background(), "Our dashboard is broken and the board meeting is Friday!")
		require.NoError(t, err)

		assert.Equal(t, "Client needs a dashboard rebuilt before Friday.", analysis.Summary)
		assert.Equal(t, "High", analysis.Priority)
		assert.Equal(t, []string{"react", "ui design"}, analysis.RequiredSkills)
		assert.Equal(t, models.UrgencyHigh, analysis.Urgency())

		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, "test-model", gotRequest["model"])
		// 结构化输出约束必须随请求发出
		rf, ok := gotRequest["response_format"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "json_schema", rf["type"])
	})

	t.Run("rejects empty message without calling the API", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		analyzer := NewChatAnalyzer(server.URL, "k", "m")
		_, err := analyzer.AnalyzeMessage(context.Background(), "   ")
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("propagates API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		analyzer := NewChatAnalyzer(server.URL, "k", "m")
		_, err := analyzer.AnalyzeMessage(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("rejects empty summary", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(fakeCompletion(t, Analysis{Summary: "", Priority: "Low"}))
		}))
		defer server.Close()

		analyzer := NewChatAnalyzer(server.URL, "k", "m")
		_, err := analyzer.AnalyzeMessage(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty summary")
	})

	t.Run("rejects unparseable content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": "sorry, I cannot help with that"}},
				},
			})
			w.Write(body)
		}))
		defer server.Close()

		analyzer := NewChatAnalyzer(server.URL, "k", "m")
		_, err := analyzer.AnalyzeMessage(context.Background(), "hello")
		require.Error(t, err)
	})
}

func TestAnalysisUrgency(t *testing.T) {
	cases := map[string]models.Urgency{
		"High":    models.UrgencyHigh,
		"high":    models.UrgencyHigh,
		"Low":     models.UrgencyLow,
		"Medium":  models.UrgencyMedium,
		"unknown": models.UrgencyMedium,
		"":        models.UrgencyMedium,
	}
	for priority, want := range cases {
		a := &Analysis{Priority: priority}
		assert.Equal(t, want, a.Urgency(), "priority %q", priority)
	}
}
