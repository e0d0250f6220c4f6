package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lead-board-backend/pkg/models"
)

// Analysis is the structured triple the language model returns for a client message.
type Analysis struct {
	Summary        string   `json:"summary"`
	Priority       string   `json:"priority"` // Low | Medium | High
	RequiredSkills []string `json:"required_skills"`
}

// Urgency maps the model's priority label onto the board's urgency enum.
func (a *Analysis) Urgency() models.Urgency {
	return models.ParseUrgency(a.Priority)
}

// Analyzer turns a raw client message into an Analysis.
type Analyzer interface {
	AnalyzeMessage(ctx context.Context, message string) (*Analysis, error)
}

// intakeSystemPrompt 固定的分析提示词
const intakeSystemPrompt = `You are an intake assistant for a sales team. Analyze the client message and produce:
1. "summary": one or two sentences describing what the client needs.
2. "priority": "Low", "Medium" or "High" based on urgency signals in the text (deadlines, blocking issues, revenue impact).
3. "required_skills": short skill names a team member would need to handle this (e.g. "frontend", "data migration"). Use lowercase, at most five.

Return JSON only.`

// intakeSchema 结构化输出schema，保证三元组格式稳定
var intakeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"summary": map[string]interface{}{
			"type":        "string",
			"description": "One or two sentence summary of the client's need",
		},
		"priority": map[string]interface{}{
			"type": "string",
			"enum": []string{"Low", "Medium", "High"},
		},
		"required_skills": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
	"required":             []string{"summary", "priority", "required_skills"},
	"additionalProperties": false,
}

// ChatAnalyzer calls an OpenAI-compatible chat completions endpoint.
type ChatAnalyzer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChatAnalyzer 创建分析器实例
func NewChatAnalyzer(baseURL, apiKey, model string) *ChatAnalyzer {
	return &ChatAnalyzer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// AnalyzeMessage 调用模型分析客户消息，返回 summary/priority/required_skills 三元组
func (a *ChatAnalyzer) AnalyzeMessage(ctx context.Context, message string) (*Analysis, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is empty")
	}

	requestBody := map[string]interface{}{
		"model": a.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": intakeSystemPrompt},
			{"role": "user", "content": message},
		},
		"stream":      false,
		"temperature": 0.3, // 低温度保证输出稳定
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "intake_analysis",
				"strict": true,
				"schema": intakeSchema,
			},
		},
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("⚠️ AI analysis API error: %s\n", string(body))
		return nil, fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return nil, fmt.Errorf("no response from analysis model")
	}

	var result Analysis
	content := apiResponse.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		fmt.Printf("⚠️ Failed to parse analysis (response length: %d bytes): %v\n", len(content), err)
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("analysis returned empty summary")
	}
	return &result, nil
}
