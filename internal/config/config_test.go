package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("USE_MEMORY_QUEUE", "")
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("GEMINI_MODEL_ID", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port = %s, want default 8080", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("env = %s, want development", cfg.Env)
	}
	if !cfg.UseMemoryQueue {
		t.Fatal("memory queue must be the development default")
	}
	if cfg.GatewayTimeout != 8*time.Second {
		t.Fatalf("gateway timeout = %s, want 8s", cfg.GatewayTimeout)
	}
	if cfg.GeminiModelID == "" {
		t.Fatal("expected a default Gemini model id")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "tok")
	t.Setenv("CONVERSATION_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/1/citabot.fifo")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.RedisTLS {
		t.Fatal("redis tls override not applied")
	}
	if cfg.UseMemoryQueue {
		t.Fatal("memory queue override not applied")
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("worker count = %d, want 4", cfg.WorkerCount)
	}
	if cfg.GatewayTimeout != 3*time.Second {
		t.Fatalf("gateway timeout = %s, want 3s", cfg.GatewayTimeout)
	}
	if cfg.WhatsAppVerifyToken != "tok" {
		t.Fatalf("verify token = %q", cfg.WhatsAppVerifyToken)
	}
	if cfg.ConversationQueueURL == "" {
		t.Fatal("queue url override not applied")
	}
}
