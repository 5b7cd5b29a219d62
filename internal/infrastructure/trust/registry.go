// Package trust implements the global app reputation registry.
package trust

import (
	"fmt"
	"os"
	"sync"

	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"gopkg.in/yaml.v3"
)

// DefaultSeeds is the built-in reputation table.
var DefaultSeeds = map[string]int{
	"Google":                95,
	"Facebook":              80,
	"Twitter":               75,
	"Instagram":             75,
	"LinkedIn":              85,
	"Unknown App":           50,
	"Free Casino 777":       10,
	"Generic Crypto Wallet": 20,
}

// Registry implements service.TrustRegistry over a mutable, lock-guarded table.
// Registry 使用读写锁保护的可变映射实现 service.TrustRegistry。
type Registry struct {
	mu     sync.RWMutex
	scores map[string]int
}

var _ service.TrustRegistry = (*Registry)(nil)

// NewRegistry creates a registry seeded with DefaultSeeds and then overrides.
func NewRegistry(overrides map[string]int) *Registry {
	scores := make(map[string]int, len(DefaultSeeds)+len(overrides))
	for name, score := range DefaultSeeds {
		scores[name] = score
	}
	for name, score := range overrides {
		scores[name] = clamp(score)
	}
	return &Registry{scores: scores}
}

// LoadRegistry creates a registry whose seeds are extended by the YAML map at path.
// An empty path yields the built-in table.
// LoadRegistry 从 YAML 文件加载信誉分种子（应用名 -> 分数）。
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(nil), nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust seed file: %w", err)
	}
	var overrides map[string]int
	if err := yaml.Unmarshal(file, &overrides); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trust seed file: %w", err)
	}
	return NewRegistry(overrides), nil
}

// TrustScore returns the app's reputation, or the default for unknown apps.
func (r *Registry) TrustScore(appName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if score, ok := r.scores[appName]; ok {
		return score
	}
	return constants.DefaultTrustScore
}

// DecreaseTrust lowers the app's reputation by amount. Unknown apps start from the default.
func (r *Registry) DecreaseTrust(appName string, amount int) {
	if amount <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.scores[appName]
	if !ok {
		current = constants.DefaultTrustScore
	}
	r.scores[appName] = clamp(current - amount)
}

// Snapshot returns a copy of the table.
func (r *Registry) Snapshot() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.scores))
	for name, score := range r.scores {
		out[name] = score
	}
	return out
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > constants.MaxTrustScore {
		return constants.MaxTrustScore
	}
	return score
}
