package lead_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/1abobik1/FlowStudio/internal/domain"
	"github.com/go-redis/redis/v8"
)

var ErrLeadNotFound = errors.New("lead not found")
var ErrSessionNotFound = errors.New("flow session not found")

// redisLeadStore хранит лидов и состояние flow-сессий в Redis.
// Никакого module-global состояния: стор инжектится в сервисы явно,
// при рестарте или горизонтальном масштабировании данные не теряются.
type redisLeadStore struct {
	cli     *redis.Client
	leadTTL time.Duration
	sessTTL time.Duration
}

func NewRedisLeadStore(cli *redis.Client, leadTTL, sessTTL time.Duration) *redisLeadStore {
	return &redisLeadStore{
		cli:     cli,
		leadTTL: leadTTL,
		sessTTL: sessTTL,
	}
}

func (r *redisLeadStore) SaveLead(ctx context.Context, lead domain.Lead) error {
	blob, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	key := fmt.Sprintf("lead:%s", lead.WaID)
	return r.cli.SetEX(ctx, key, blob, r.leadTTL).Err()
}

func (r *redisLeadStore) GetLead(ctx context.Context, waID string) (domain.Lead, error) {
	key := fmt.Sprintf("lead:%s", waID)
	blob, err := r.cli.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.Lead{}, ErrLeadNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	var lead domain.Lead
	if err := json.Unmarshal(blob, &lead); err != nil {
		return domain.Lead{}, fmt.Errorf("unmarshal lead: %w", err)
	}
	return lead, nil
}

func (r *redisLeadStore) SaveFlowSession(ctx context.Context, sess domain.FlowSession) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal flow session: %w", err)
	}
	key := fmt.Sprintf("flowsess:%s", sess.Token)
	return r.cli.SetEX(ctx, key, blob, r.sessTTL).Err()
}

func (r *redisLeadStore) GetFlowSession(ctx context.Context, token string) (domain.FlowSession, error) {
	key := fmt.Sprintf("flowsess:%s", token)
	blob, err := r.cli.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.FlowSession{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.FlowSession{}, err
	}

	var sess domain.FlowSession
	if err := json.Unmarshal(blob, &sess); err != nil {
		return domain.FlowSession{}, fmt.Errorf("unmarshal flow session: %w", err)
	}
	return sess, nil
}

func (r *redisLeadStore) DeleteFlowSession(ctx context.Context, token string) error {
	return r.cli.Del(ctx, fmt.Sprintf("flowsess:%s", token)).Err()
}
