package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/verdantlabs/espalier/internal/adapters/redis"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/ports"
)

var _ ports.DraftStore = (*redis.Store)(nil)

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client)
	ports.RunDraftStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	draftID := "draft-ttl"

	err = store.Save(ctx, &domain.DraftRecord{
		ID:       draftID,
		WizardID: "onboarding",
		Answers:  domain.AnswerSet{"foo": "bar"},
	})
	assert.NoError(t, err)

	drafts, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, drafts, draftID)

	// Expire the key inside miniredis.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, draftID)
	assert.ErrorIs(t, err, domain.ErrDraftNotFound)

	// Lazy index cleanup keys off time.Now(), so wait past the TTL wall
	// clock before checking List.
	time.Sleep(1200 * time.Millisecond)

	drafts, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	draftID := "my-draft"

	err = store.Save(ctx, &domain.DraftRecord{ID: draftID, WizardID: "onboarding"})
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-draft"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, draftID)
}
