package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txwebhook/internal/client"
)

// Dataset contains the generated deliveries in send order.
type Dataset struct {
	Notifications []client.Webhook `json:"notifications"`
	Unique        int              `json:"unique"`
}

// Generator produces synthetic webhook deliveries, including redeliveries.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumNotifications <= 0 {
		cfg.NumNotifications = def.NumNotifications
	}
	if cfg.DuplicateChance < 0 {
		cfg.DuplicateChance = 0
	}
	if cfg.DuplicateChance >= 1 {
		cfg.DuplicateChance = def.DuplicateChance
	}
	if cfg.NumAccounts < 2 {
		cfg.NumAccounts = def.NumAccounts
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = def.Currencies
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises deliveries. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	hooks := make([]client.Webhook, 0, g.cfg.NumNotifications)
	unique := 0

	for len(hooks) < g.cfg.NumNotifications {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		if unique > 0 && g.rand.Float64() < g.cfg.DuplicateChance {
			hooks = append(hooks, hooks[g.rand.Intn(len(hooks))])
			continue
		}

		hook, err := g.newWebhook()
		if err != nil {
			return Dataset{}, err
		}
		hooks = append(hooks, hook)
		unique++
	}

	return Dataset{Notifications: hooks, Unique: unique}, nil
}

func (g *Generator) newWebhook() (client.Webhook, error) {
	// Ids come from the seeded source so a seed reproduces the same dataset.
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return client.Webhook{}, fmt.Errorf("generate transaction id: %w", err)
	}

	src := g.rand.Intn(g.cfg.NumAccounts)
	dst := g.rand.Intn(g.cfg.NumAccounts)
	if src == dst {
		dst = (dst + 1) % g.cfg.NumAccounts
	}

	return client.Webhook{
		TransactionID:      "txn_" + id.String(),
		SourceAccount:      fmt.Sprintf("acc_%05d", src+1),
		DestinationAccount: fmt.Sprintf("acc_%05d", dst+1),
		Amount:             decimal.New(int64(1+g.rand.Intn(500000)), -2),
		Currency:           g.cfg.Currencies[g.rand.Intn(len(g.cfg.Currencies))],
	}, nil
}
