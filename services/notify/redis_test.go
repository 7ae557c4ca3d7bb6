package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kleinwatch/dealwatcher/internal/fetcher"
)

// This test requires a running redis instance
// If redis is not available, the test will be skipped
func TestRedisChannel(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	ch := NewRedisChannel(RedisConfig{
		Addr:            "localhost:6379",
		DB:              0,
		StreamPrefix:    "test_listings",
		StreamCount:     1,
		StreamMaxLength: 10,
	})
	defer ch.Close()

	defer client.Del(ctx, "test_listings:0")

	listing := fetcher.Listing{
		Title:      "Ryzen 9 5900X",
		Price:      ptr(250),
		URL:        "https://l/1",
		SourceTerm: "ryzen",
	}

	err := ch.Notify(ctx, []fetcher.Listing{listing})
	require.NoError(t, err)

	messages, err := client.XRange(ctx, "test_listings:0", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	encoded, ok := messages[0].Values["listing"].(string)
	require.True(t, ok)

	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var decoded fetcher.Listing
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, listing.URL, decoded.URL)
	assert.Equal(t, listing.Title, decoded.Title)
}
