package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

// Redis stores references durably so registered methods survive a
// restart. Same masking contract as Memory: only the already-masked
// reference is written.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func refKey(token string) string {
	return "payref:" + token
}

func userKey(usuarioID int64) string {
	return fmt.Sprintf("payref:user:%d", usuarioID)
}

func (v *Redis) Register(ctx context.Context, in RegisterInput) (models.PaymentReference, error) {
	ref, err := newReference(in)
	if err != nil {
		return models.PaymentReference{}, err
	}
	raw, err := json.Marshal(ref)
	if err != nil {
		return models.PaymentReference{}, err
	}
	if err := v.rdb.Set(ctx, refKey(ref.Token), raw, 0).Err(); err != nil {
		return models.PaymentReference{}, err
	}
	err = v.rdb.ZAdd(ctx, userKey(ref.UsuarioID), redis.Z{
		Score:  float64(ref.FechaRegistro.UnixNano()),
		Member: ref.Token,
	}).Err()
	if err != nil {
		return models.PaymentReference{}, err
	}
	return ref, nil
}

func (v *Redis) Lookup(ctx context.Context, token string) (models.PaymentReference, error) {
	raw, err := v.rdb.Get(ctx, refKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PaymentReference{}, ErrNotFound
	}
	if err != nil {
		return models.PaymentReference{}, err
	}
	var ref models.PaymentReference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return models.PaymentReference{}, err
	}
	return ref, nil
}

func (v *Redis) ListForUser(ctx context.Context, usuarioID int64) ([]models.PaymentReference, error) {
	toks, err := v.rdb.ZRange(ctx, userKey(usuarioID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.PaymentReference, 0, len(toks))
	for _, tok := range toks {
		ref, err := v.Lookup(ctx, tok)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (v *Redis) LatestForUser(ctx context.Context, usuarioID int64) (models.PaymentReference, error) {
	refs, err := v.ListForUser(ctx, usuarioID)
	if err != nil {
		return models.PaymentReference{}, err
	}
	return latest(refs)
}
