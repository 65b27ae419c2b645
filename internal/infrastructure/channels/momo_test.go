package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func momoClient(baseURL string) *MoMoClient {
	return NewMoMoClient(config.ChannelsConfig{
		HTTPTimeout: 2 * time.Second,
		MoMo:        config.ProviderConfig{Name: "momo", BaseURL: baseURL, APIKey: "test-key"},
	}, zap.NewNop())
}

func TestMoMoClient_Initiate(t *testing.T) {
	amount := decimal.RequireFromString("1200")

	t.Run("202 is accepted with the reference header set", func(t *testing.T) {
		var gotRef string
		var gotBody disbursementRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotRef = r.Header.Get("X-Reference-Id")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		key := dispatch.NewPayoutKey()
		result, err := momoClient(srv.URL).Initiate(context.Background(), key, "+250788123456", amount, "RWF")
		require.NoError(t, err)

		assert.Equal(t, dispatch.ProviderPayoutAccepted, result.Status)
		assert.Equal(t, key, gotRef)
		assert.Equal(t, "250788123456", gotBody.PartyID, "msisdn without plus")
		assert.Equal(t, "1200", gotBody.Amount)
	})

	t.Run("409 on a known key resolves through query", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusConflict)
				return
			}
			json.NewEncoder(w).Encode(disbursementStatus{Status: "SUCCESSFUL", FinancialID: "MTN-TX-991"})
		}))
		defer srv.Close()

		result, err := momoClient(srv.URL).Initiate(context.Background(), dispatch.NewPayoutKey(), "+250788123456", amount, "RWF")
		require.NoError(t, err)

		assert.Equal(t, dispatch.ProviderPayoutCompleted, result.Status)
		assert.Equal(t, "MTN-TX-991", result.Ref)
	})

	t.Run("4xx is a terminal failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		result, err := momoClient(srv.URL).Initiate(context.Background(), dispatch.NewPayoutKey(), "+250788123456", amount, "RWF")
		require.NoError(t, err)
		assert.Equal(t, dispatch.ProviderPayoutFailed, result.Status)
	})
}

func TestMoMoClient_Query(t *testing.T) {
	tests := []struct {
		name   string
		body   disbursementStatus
		expect dispatch.ProviderPayoutStatus
	}{
		{"successful", disbursementStatus{Status: "SUCCESSFUL", FinancialID: "MTN-1"}, dispatch.ProviderPayoutCompleted},
		{"failed", disbursementStatus{Status: "FAILED", Reason: "PAYEE_NOT_FOUND"}, dispatch.ProviderPayoutFailed},
		{"still pending", disbursementStatus{Status: "PENDING"}, dispatch.ProviderPayoutAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			result, err := momoClient(srv.URL).Query(context.Background(), dispatch.NewPayoutKey())
			require.NoError(t, err)
			assert.Equal(t, tt.expect, result.Status)
		})
	}
}
