package cmd

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewOracleClientFallsBackToEnvKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	client, err := newOracleClient(context.Background(), &OracleConfig{Gemini: &GeminiConfig{}}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatalf("expected a client")
	}
}

func TestNewOracleClientWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := newOracleClient(context.Background(), &OracleConfig{Gemini: &GeminiConfig{}}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("the error should name the fallback variable: %v", err)
	}
}

func TestNewOracleClientRejectsUnknownProvider(t *testing.T) {
	_, err := newOracleClient(context.Background(), &OracleConfig{Provider: "openai"}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected an error for an unsupported provider")
	}
}
