package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_MatchesHMACSHA256OfBody(t *testing.T) {
	secret := "top-secret"
	body := []byte(`{"event":"message.created"}`)

	got := sign(secret, body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)
}

func TestSign_DifferentSecretsProduceDifferentSignatures(t *testing.T) {
	body := []byte(`payload`)
	assert.NotEqual(t, sign("secret-a", body), sign("secret-b", body))
}

func TestDispatchBackoff_WithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	for attempt := 0; attempt < 10; attempt++ {
		d := dispatchBackoff(base, max, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestStatusOutcome_ClassifiesByStatusAndError(t *testing.T) {
	cases := []struct {
		name              string
		status            int
		err               error
		delivered         bool
		permanentlyFailed bool
	}{
		{"ok", http.StatusOK, nil, true, false},
		{"not found", http.StatusNotFound, nil, false, true},
		{"unauthorized", http.StatusUnauthorized, nil, false, true},
		{"request timeout retries", http.StatusRequestTimeout, nil, false, false},
		{"too many requests retries", http.StatusTooManyRequests, nil, false, false},
		{"server error retries", http.StatusInternalServerError, nil, false, false},
		{"network error retries", 0, context.DeadlineExceeded, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delivered, permanentlyFailed := statusOutcome(tc.status, tc.err)
			assert.Equal(t, tc.delivered, delivered)
			assert.Equal(t, tc.permanentlyFailed, permanentlyFailed)
		})
	}
}

func TestDispatcher_Post_SignsAndSendsBody(t *testing.T) {
	var receivedSig string
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSig = r.Header.Get("X-Signature")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := &Dispatcher{httpClient: server.Client()}
	payload := []byte(`{"trigger":"message.created"}`)

	status, err := d.post(context.Background(), server.URL, "shh", payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, sign("shh", payload), receivedSig)
	assert.Equal(t, payload, receivedBody)
}
