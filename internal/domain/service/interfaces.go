package service

import (
	"context"
	"errors"
	"time"

	"github.com/turtacn/pdmews/internal/domain/models"
)

// TrustRegistry holds the global reputation of named apps.
// TrustRegistry 维护应用的全局信誉分
type TrustRegistry interface {
	// TrustScore returns the app's reputation in [0,100]; unknown apps get the default.
	// TrustScore 返回应用信誉分，未知应用返回默认值 50。
	TrustScore(appName string) int

	// DecreaseTrust lowers the app's reputation by amount, floored at 0.
	// DecreaseTrust 降低应用信誉分，最低为 0。
	DecreaseTrust(appName string, amount int)

	// Snapshot returns a copy of every known score.
	Snapshot() map[string]int
}

// CrowdCorrelator counts high-risk findings per app across all users.
// CrowdCorrelator 跨用户统计每个应用的高风险报告数
type CrowdCorrelator interface {
	// ReportHighRisk atomically increments the app's report count.
	ReportHighRisk(ctx context.Context, appName string) error

	// CrowdMultiplier maps the app's report count to a multiplier in [1.0,1.5].
	CrowdMultiplier(ctx context.Context, appName string) float64

	// ReportCount returns the app's current report count.
	ReportCount(ctx context.Context, appName string) (int, error)
}

// BreachEntry is one breach an account was found in.
type BreachEntry struct {
	Name        string `json:"Name"`
	Title       string `json:"Title"`
	Domain      string `json:"Domain"`
	BreachDate  string `json:"BreachDate"`
	Description string `json:"Description"`
}

var (
	// ErrBreachNotFound means the account appears in no known breach.
	ErrBreachNotFound = errors.New("account not found in any breach")

	// ErrBreachUnauthorized means the lookup service rejected the API key.
	ErrBreachUnauthorized = errors.New("breach lookup rejected the api key")
)

// BreachLookup queries an external breach database.
// BreachLookup 查询外部数据泄露库
type BreachLookup interface {
	// Lookup returns the breaches the account appears in.
	// It returns ErrBreachNotFound, ErrBreachUnauthorized or a transient error otherwise.
	Lookup(ctx context.Context, account string) ([]BreachEntry, error)
}

// AlertPublisher fans out newly created alerts to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, alert *models.Alert) error
	Close() error
}

// SecretProvider reads a single field of a stored secret.
// SecretProvider 读取密钥存储中的单个字段（例如 Vault KV v2）
type SecretProvider interface {
	GetSecret(ctx context.Context, path, field string) (string, error)
}

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter meters requests per key with a token bucket.
// RateLimiter 按 key 做令牌桶限流，用于保护开销较大的接口
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}
