package services

import (
	"context"
	"fmt"
	"time"

	"freshcast-api/pkg/openai"
)

// AdvisoryClient 外部のテキスト補完サービスへの最小インターフェース。
// テストではフェイク実装に差し替える。
type AdvisoryClient interface {
	ChatCompletion(ctx context.Context, messages []openai.ChatMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error)
}

// AdvisoryService 定量予測に該当しない質問（仕入れ先、保存方法、経営相談など）を
// 外部のLLMへ委譲する。応答は加工せずそのまま返す。
type AdvisoryService struct {
	client AdvisoryClient
}

// 小規模ベーカリー向けビジネスアシスタントとしての役割定義
const advisorySystemPrompt = `You are FreshCast AI Assistant, a supply chain and business expert for small bakeries.

Your role:
- Provide practical advice for bakery operations
- Suggest suppliers and cost optimization strategies
- Answer questions about ingredient storage, quality, and substitutions
- Give actionable recommendations based on industry best practices

Keep responses:
- Concise (2-3 paragraphs max)
- Actionable with specific recommendations
- Cost-conscious (remember, this is a small business)
- Professional but friendly

If asked about forecasts or inventory numbers, remind the user that the forecasting engine handles those queries.`

// NewAdvisoryService 新しいアドバイザリーサービスを作成
func NewAdvisoryService(client AdvisoryClient) *AdvisoryService {
	return &AdvisoryService{client: client}
}

// Answer 質問を外部サービスへ委譲して回答テキストを返す。
// 失敗時はErrAdvisoryUnavailableでラップする。呼び出し側は失敗を
// 明示的なエラーメッセージとして利用者に提示すること（黙殺しない）。
func (as *AdvisoryService) Answer(ctx context.Context, question, businessContext string) (string, error) {
	if as.client == nil {
		return "", fmt.Errorf("%w: クライアントが設定されていません", ErrAdvisoryUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	messages := []openai.ChatMessage{
		{Role: "system", Content: advisorySystemPrompt},
	}
	if businessContext != "" {
		messages = append(messages, openai.ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("Current context: %s", businessContext),
		})
	}
	messages = append(messages, openai.ChatMessage{Role: "user", Content: question})

	resp, err := as.client.ChatCompletion(ctx, messages, 500, 0.7)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: 有効な回答が得られませんでした", ErrAdvisoryUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
