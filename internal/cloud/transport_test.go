// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agentic-studio/internal/model"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderID
		wantErr bool
	}{
		{"gemini", ProviderGemini, false},
		{" Groq ", ProviderGroq, false},
		{"GEMINI", ProviderGemini, false},
		{"ollama", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		field string
	}{
		{"no provider", Credentials{APIKey: "0123456789abc"}, "provider"},
		{"unknown provider", Credentials{Provider: "openai", APIKey: "0123456789abc"}, "provider"},
		{"no key", Credentials{Provider: ProviderGroq}, "apiKey"},
		{"blank key", Credentials{Provider: ProviderGroq, APIKey: "    "}, "apiKey"},
		{"ten chars", Credentials{Provider: ProviderGroq, APIKey: "0123456789"}, "apiKey"},
		{"eleven chars", Credentials{Provider: ProviderGroq, APIKey: "0123456789a"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestCredentials_Masked(t *testing.T) {
	c := Credentials{Provider: ProviderGroq, APIKey: "gsk_abcdefghijklmnop"}
	assert.Equal(t, "gsk_...mnop", c.Masked())
	assert.NotContains(t, c.Masked(), "efgh")
}

type stubTransport struct{ id ProviderID }

func (s stubTransport) Provider() ProviderID { return s.id }

func (s stubTransport) OpenStream(context.Context, []model.Message, string, Credentials) (Stream, error) {
	return nil, errors.New("not implemented")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(stubTransport{ProviderGroq}, stubTransport{ProviderGemini})
	assert.Equal(t, []ProviderID{ProviderGemini, ProviderGroq}, reg.Providers())

	tr, err := reg.Lookup(ProviderGroq)
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, tr.Provider())

	_, err = reg.Lookup("")
	assert.True(t, IsConfigurationError(err))

	_, err = reg.Lookup("ollama")
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestTransportError_Message(t *testing.T) {
	err := &TransportError{Provider: ProviderGroq, Status: 429, Body: "Rate limit reached", Err: ErrRateLimited}
	assert.Equal(t, "groq transport error (HTTP 429): Rate limit reached", err.Error())
	assert.ErrorIs(t, err, ErrRateLimited)

	noResp := &TransportError{Provider: ProviderGemini, Err: ErrStreamTimeout}
	assert.Equal(t, "stream idle timeout", noResp.Detail())
}
