package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/counselgpt/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOTPEmail(t *testing.T) {
	body, err := accounts.RenderOTPEmail("Ada X", "123456")
	require.NoError(t, err)

	assert.Contains(t, body, "Ada X")
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "10 minutes")
	assert.Contains(t, body, "CounselGPT")
}

func TestRenderOTPEmailEscapesInput(t *testing.T) {
	body, err := accounts.RenderOTPEmail(`<script>alert("x")</script>`, "123456")
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestSMTPMailerRequiresConfig(t *testing.T) {
	mailer := accounts.NewSMTPMailer(accounts.SMTPConfig{}, nil)
	err := mailer.SendOTP(context.Background(), "a@x.com", "Ada X", "123456")
	assert.Error(t, err)
}

func TestLogMailerNeverFails(t *testing.T) {
	mailer := accounts.NewLogMailer(nil)
	assert.NoError(t, mailer.SendOTP(context.Background(), "a@x.com", "Ada X", "123456"))
}
