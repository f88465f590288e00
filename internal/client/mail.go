// 메일 발송 API와 통신하는 클라이언트 정의
//
// 환경변수 (config.MailConfig):
//   - MAIL_API_URL: JSON 메일 발송 엔드포인트 (예: https://mail.internal/v1/send)
//   - MAIL_API_KEY: Bearer 토큰
//   - MAIL_FROM: 발신자 주소
//   - MAIL_VERIFY_BASE_URL: 이메일 인증 링크 base URL
//   - MAIL_TIMEOUT (default: 10s)
//
// MAIL_API_URL이 비어 있으면 메일을 보내지 않고 로그만 남깁니다 (로컬 개발용).

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/p1m/productivity-suite/internal/config"
	"github.com/p1m/productivity-suite/internal/model"
	"github.com/p1m/productivity-suite/internal/template"
)

// MailClient(발송 설정) 구조체 정의
type MailClient struct {
	apiURL        string
	apiKey        string
	from          string
	verifyBaseURL string
	httpClient    *http.Client
	log           zerolog.Logger
	now           func() time.Time
}

// MailMessage(발송 요청 본문) 구조체 정의
type MailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// MailResponse(발송 응답) 구조체 정의
type MailResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewMailClient(cfg config.MailConfig, log zerolog.Logger) *MailClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MailClient{
		apiURL:        cfg.APIURL,
		apiKey:        cfg.APIKey,
		from:          cfg.From,
		verifyBaseURL: cfg.VerifyBaseURL,
		httpClient:    &http.Client{Timeout: timeout},
		log:           log,
		now:           time.Now,
	}
}

// MailClient에 발송 엔드포인트가 설정되어 있는지 체크
func (c *MailClient) IsConfigured() bool {
	return c.apiURL != ""
}

func (c *MailClient) SendVerifyEmail(ctx context.Context, user *model.User, verificationToken string) error {
	data := template.UserDataFromModel(user)
	link := template.VerifyLink(c.verifyBaseURL, verificationToken)
	return c.deliver(ctx, MailMessage{
		From:    c.from,
		To:      data.Email,
		Subject: template.VerifyEmailSubject,
		Text:    template.RenderBody(template.VerifyEmailBody, &data, link, nil),
	})
}

func (c *MailClient) SendPasswordOtp(ctx context.Context, user *model.User, otp string, expiresAt time.Time) error {
	data := template.UserDataFromModel(user)
	return c.deliver(ctx, MailMessage{
		From:    c.from,
		To:      data.Email,
		Subject: template.PasswordOtpSubject,
		Text: template.RenderBody(template.PasswordOtpBody, &data, "", &template.OtpData{
			Code:      otp,
			ExpiresAt: expiresAt,
			IssuedAt:  c.now(),
		}),
	})
}

func (c *MailClient) deliver(ctx context.Context, msg MailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("mail recipient is empty")
	}
	if !c.IsConfigured() {
		c.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail api not configured, skipping delivery")
		return nil
	}

	resp, err := c.send(ctx, msg)
	if err != nil {
		return err
	}
	c.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Str("id", resp.ID).Msg("mail delivered")
	return nil
}

// 메일 API 호출
func (c *MailClient) send(ctx context.Context, msg MailMessage) (*MailResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var mailResp MailResponse
	if len(bytes.TrimSpace(body)) > 0 {
		// 일부 게이트웨이는 JSON이 아닌 본문을 돌려주므로 파싱 실패는 상태 코드로만 판단
		_ = json.Unmarshal(body, &mailResp)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if mailResp.Error != "" {
			return nil, fmt.Errorf("mail API error (%d): %s", resp.StatusCode, mailResp.Error)
		}
		return nil, fmt.Errorf("mail API error (%d)", resp.StatusCode)
	}

	return &mailResp, nil
}
