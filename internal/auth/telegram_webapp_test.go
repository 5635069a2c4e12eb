package auth

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// buildInitData assembles initData with a valid hash for the given auth_date.
func buildInitData(botToken string, authDate time.Time, extra map[string]string) string {
	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	for k, v := range extra {
		params.Set(k, v)
	}

	var pairs []string
	for key, values := range params {
		for _, v := range values {
			pairs = append(pairs, fmt.Sprintf("%s=%s", key, v))
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := hmacSHA256([]byte("WebAppData"), []byte(botToken))
	hash := hmacSHA256(secretKey, []byte(dataCheckString))
	params.Set("hash", hex.EncodeToString(hash))

	return params.Encode()
}

func TestValidateTelegramWebAppData_ValidHash(t *testing.T) {
	botToken := "test-bot-token-12345"

	initData := buildInitData(botToken, time.Now().Add(-30*time.Second), map[string]string{
		"query_id": "test_query_id",
		"user":     `{"id":123456,"first_name":"Test","username":"testuser"}`,
	})

	vals, err := ValidateTelegramWebAppData(initData, botToken, 5*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	user, err := ParseWebAppUser(vals)
	if err != nil {
		t.Fatalf("ParseWebAppUser failed: %v", err)
	}
	if user.ID != 123456 || user.Username != "testuser" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestValidateTelegramWebAppData_TamperedPayload(t *testing.T) {
	botToken := "test-bot-token-12345"

	initData := buildInitData(botToken, time.Now(), map[string]string{
		"user": `{"id":123456,"first_name":"Test"}`,
	})
	tampered := strings.Replace(initData, "123456", "654321", 1)

	if _, err := ValidateTelegramWebAppData(tampered, botToken, 5*time.Minute); err == nil {
		t.Error("expected error for tampered initData")
	}
}

func TestValidateTelegramWebAppData_WrongBotToken(t *testing.T) {
	initData := buildInitData("token-a", time.Now(), map[string]string{
		"user": `{"id":1}`,
	})
	if _, err := ValidateTelegramWebAppData(initData, "token-b", 5*time.Minute); err == nil {
		t.Error("expected error for initData signed with a different bot token")
	}
}

func TestValidateTelegramWebAppData_ExpiredAuthDate(t *testing.T) {
	botToken := "test-bot-token-12345"

	initData := buildInitData(botToken, time.Now().Add(-10*time.Minute), map[string]string{
		"user": `{"id":1}`,
	})
	if _, err := ValidateTelegramWebAppData(initData, botToken, 5*time.Minute); err == nil {
		t.Error("expected error for expired auth_date")
	}
}

func TestValidateTelegramWebAppData_MissingHash(t *testing.T) {
	if _, err := ValidateTelegramWebAppData("auth_date=123", "token", 5*time.Minute); err == nil {
		t.Error("expected error for initData without hash")
	}
}

func TestParseWebAppUser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		user string
	}{
		{"missing", ""},
		{"not json", "not-json"},
		{"zero id", `{"first_name":"Test"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := url.Values{}
			if tt.user != "" {
				vals.Set("user", tt.user)
			}
			if _, err := ParseWebAppUser(vals); err == nil {
				t.Error("expected error")
			}
		})
	}
}
