// Package template provides notification mail body rendering.
//
// 지원하는 변수 형식:
//
//	{{user.name}}, {{user.email}}
//
//	{{verify.link}}
//
//	{{otp.code}}, {{otp.expires_at}}, {{otp.ttl_minutes}}
package template

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/p1m/productivity-suite/internal/model"
)

const (
	VerifyEmailSubject = "Verify your email"
	PasswordOtpSubject = "Your password reset code"

	VerifyEmailBody = `Hello {{user.name}},

Thanks for signing up. Please confirm {{user.email}} by opening the link below:

{{verify.link}}

If you did not create an account, you can ignore this email.`

	PasswordOtpBody = `Hello {{user.name}},

Your one-time code is {{otp.code}}.
It expires at {{otp.expires_at}} ({{otp.ttl_minutes}} minutes).

If you did not ask to change your password, you can ignore this email.`
)

// UserData - 템플릿 렌더링에 사용할 사용자 데이터
type UserData struct {
	Name  string
	Email string
}

// OtpData - 비밀번호 재설정 코드 데이터
type OtpData struct {
	Code      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// UserDataFromModel - model.User에서 UserData 생성
func UserDataFromModel(user *model.User) UserData {
	if user == nil {
		return UserData{}
	}
	return UserData{Name: user.Name, Email: user.Email}
}

// VerifyLink appends the verification token to base as the token query parameter.
func VerifyLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// RenderBody - 메일 body 템플릿의 변수를 실제 값으로 치환
//
// nil로 전달된 항목의 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, user *UserData, verifyLink string, otp *OtpData) string {
	pairs := make([]string, 0, 12)

	if user != nil {
		pairs = append(pairs,
			"{{user.name}}", user.Name,
			"{{user.email}}", user.Email,
		)
	} else {
		pairs = append(pairs,
			"{{user.name}}", "",
			"{{user.email}}", "",
		)
	}

	pairs = append(pairs, "{{verify.link}}", verifyLink)

	if otp != nil {
		ttl := ""
		if !otp.IssuedAt.IsZero() && otp.ExpiresAt.After(otp.IssuedAt) {
			ttl = strconv.Itoa(int(otp.ExpiresAt.Sub(otp.IssuedAt).Round(time.Minute) / time.Minute))
		}
		pairs = append(pairs,
			"{{otp.code}}", otp.Code,
			"{{otp.expires_at}}", otp.ExpiresAt.UTC().Format(time.RFC3339),
			"{{otp.ttl_minutes}}", ttl,
		)
	} else {
		pairs = append(pairs,
			"{{otp.code}}", "",
			"{{otp.expires_at}}", "",
			"{{otp.ttl_minutes}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
