package controllers

import (
	"context"
	"errors"

	"hanchat/hanchat/services/llm"
	"hanchat/hanchat/utils/lang"
	"hanchat/hanchat/utils/logging"

	"go.uber.org/zap"
)

const (
	promptKorean = "You are a helpful Korean language tutor. Respond in Korean unless explicitly asked to use English. Keep responses natural and conversational."
	promptOther  = "You are a helpful Korean language tutor. The learner is writing in English, so explain in English and show Korean examples in Hangul. Keep responses natural and conversational."

	promptRomanize = " Include a romanized transliteration (Revised Romanization) alongside any Korean text."

	noReplyKorean = "죄송합니다, 답변을 생성할 수 없습니다."
	noReplyOther  = "Sorry, I could not generate a reply."

	upstreamFailedKorean = "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	upstreamFailedOther  = "A server error occurred. Please try again shortly."

	temperature = 0.7
	maxTokens   = 1024
)

// TutorController turns one user message into one tutor reply. It owns the
// prompt construction and hides every upstream detail: any failure comes
// back as a localized fallback string, never as upstream error text.
type TutorController struct {
	client llm.Client
	model  string
}

func NewTutorController(client llm.Client, model string) *TutorController {
	return &TutorController{client: client, model: model}
}

// Reply returns the tutor's answer for message. A non-nil error means the
// upstream call failed; the returned string is then the localized fallback
// and the caller decides the transport status. Romanize nil means detect
// from the message text; an explicit hint wins over detection.
func (c *TutorController) Reply(ctx context.Context, message string, romanize *bool) (string, error) {
	korean := lang.IsKorean(message)

	system := promptOther
	if korean {
		system = promptKorean
	}
	wantRoman := lang.WantsRomanization(message)
	if romanize != nil {
		wantRoman = *romanize
	}
	if wantRoman {
		system += promptRomanize
	}

	req := llm.ChatRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	reply, err := c.client.Run(ctx, req)
	if errors.Is(err, llm.ErrNoChoices) {
		// upstream answered but produced nothing usable
		if korean {
			return noReplyKorean, nil
		}
		return noReplyOther, nil
	}
	if err != nil {
		logging.ErrorLogger.Error("completion call failed", zap.Error(err))
		if korean {
			return upstreamFailedKorean, err
		}
		return upstreamFailedOther, err
	}
	return reply, nil
}
