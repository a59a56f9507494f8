package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"whatsenquiry/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(body []byte, header, value string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if value != "" {
		r.Header.Set(header, value)
	}
	return r
}

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"typeWebhook":"incomingMessageReceived"}`)
	secret := "test-secret"

	r := signedRequest(body, "X-Webhook-Signature", signBody(secret, body))
	got, err := verifySignature(r, secret, "X-Webhook-Signature")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// Body must be readable again downstream.
	again, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, again)
}

func TestVerifySignatureSha256Prefix(t *testing.T) {
	body := []byte(`{"test":true}`)
	secret := "test-secret"

	r := signedRequest(body, "X-Webhook-Signature", "sha256="+signBody(secret, body))
	_, err := verifySignature(r, secret, "X-Webhook-Signature")
	assert.NoError(t, err)
}

func TestVerifySignatureMismatch(t *testing.T) {
	body := []byte(`{"test":true}`)

	r := signedRequest(body, "X-Webhook-Signature", signBody("wrong-secret", body))
	_, err := verifySignature(r, "test-secret", "X-Webhook-Signature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature mismatch")
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	r := signedRequest([]byte(`{}`), "X-Webhook-Signature", "")
	_, err := verifySignature(r, "test-secret", "X-Webhook-Signature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing signature header")
}

func TestVerifySignatureInvalidPrefix(t *testing.T) {
	body := []byte(`{}`)
	r := signedRequest(body, "X-Webhook-Signature", "md5="+signBody("test-secret", body))
	_, err := verifySignature(r, "test-secret", "X-Webhook-Signature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature format")
}

func TestVerifySignatureNoSecretOutsideProduction(t *testing.T) {
	t.Setenv("WHATSENQUIRY_ENV", "development")

	body := []byte(`{"ok":true}`)
	r := signedRequest(body, "X-Webhook-Signature", "")
	got, err := verifySignature(r, "", "X-Webhook-Signature")
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestVerifySignatureNoSecretInProduction(t *testing.T) {
	t.Setenv("WHATSENQUIRY_ENV", "production")

	r := signedRequest([]byte(`{}`), "X-Webhook-Signature", "")
	_, err := verifySignature(r, "", "X-Webhook-Signature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required in production")
}

func TestServerRejectsBadSignature(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.Server.WebhookSecret = "top-secret"
	s.flags.SetEnabled(features.FlagWebhookSignature, true)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+webhookPath, bytes.NewBufferString(literalPayload))
	require.NoError(t, err)
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerAcceptsValidSignature(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.Server.WebhookSecret = "top-secret"
	s.flags.SetEnabled(features.FlagWebhookSignature, true)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+webhookPath, bytes.NewBufferString(literalPayload))
	require.NoError(t, err)
	req.Header.Set("X-Webhook-Signature", signBody("top-secret", []byte(literalPayload)))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
