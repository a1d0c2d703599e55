package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() CancelSubscriptionRequest {
	return CancelSubscriptionRequest{
		RequestID: "req-42",
		Provider:  Provider{ID: "streamly", Name: "Streamly"},
		TargetURLs: TargetURLs{
			Account: "https://billing.streamly.test/account",
		},
		Guardrails: Guardrails{
			AllowedIntents:   []string{"cancel subscription"},
			ForbiddenIntents: []string{"upgrade"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CancelSubscriptionRequest)
		wantErr string
	}{
		{"valid", func(r *CancelSubscriptionRequest) {}, ""},
		{"missing requestId", func(r *CancelSubscriptionRequest) { r.RequestID = "  " }, "requestId"},
		{"missing provider id", func(r *CancelSubscriptionRequest) { r.Provider.ID = "" }, "provider.id"},
		{"empty allowed intents", func(r *CancelSubscriptionRequest) { r.Guardrails.AllowedIntents = nil }, "allowedIntents"},
		{"no target urls", func(r *CancelSubscriptionRequest) { r.TargetURLs = TargetURLs{} }, "target URL"},
		{"login url alone is enough", func(r *CancelSubscriptionRequest) {
			r.TargetURLs = TargetURLs{Login: "https://billing.streamly.test/login"}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{
			"defaults",
			Options{},
			Options{MaxSteps: 40, MaxDurationSeconds: 300, OperationTimeoutMS: 30000},
		},
		{
			"caps clamp",
			Options{MaxSteps: 1000, MaxDurationSeconds: 7200, OperationTimeoutMS: 1500},
			Options{MaxSteps: 100, MaxDurationSeconds: 600, OperationTimeoutMS: 1500},
		},
		{
			"in-range values kept",
			Options{MaxSteps: 7, MaxDurationSeconds: 60, OperationTimeoutMS: 5000, DryRun: true},
			Options{MaxSteps: 7, MaxDurationSeconds: 60, OperationTimeoutMS: 5000, DryRun: true},
		},
		{
			"negative treated as unset",
			Options{MaxSteps: -1, MaxDurationSeconds: -5},
			Options{MaxSteps: 40, MaxDurationSeconds: 300, OperationTimeoutMS: 30000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestStartURLPrefersSubscription(t *testing.T) {
	req := validRequest()
	req.TargetURLs.Subscription = "https://billing.streamly.test/subscription"
	assert.Equal(t, "https://billing.streamly.test/subscription", req.StartURL())

	req.TargetURLs.Subscription = ""
	assert.Equal(t, "https://billing.streamly.test/account", req.StartURL())

	req.TargetURLs.Account = ""
	assert.Equal(t, "", req.StartURL())
}

func TestHasSessionCookies(t *testing.T) {
	req := validRequest()
	assert.False(t, req.HasSessionCookies())

	req.UserSession = &UserSession{}
	assert.False(t, req.HasSessionCookies())

	req.UserSession.Cookies = []Cookie{{Name: "sid", Value: "abc", Domain: ".streamly.test"}}
	assert.True(t, req.HasSessionCookies())
}
