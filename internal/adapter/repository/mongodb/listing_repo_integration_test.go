package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

// startMongo spins up a throwaway MongoDB container. Set RUN_DB_TESTS=1 to
// enable; the suite is skipped otherwise so unit runs stay Docker-free.
func startMongo(t *testing.T) *mongo.Client {
	t.Helper()
	if os.Getenv("RUN_DB_TESTS") != "1" {
		t.Skip("set RUN_DB_TESTS=1 to run MongoDB integration tests")
	}

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, pool.Client.Ping())

	resource, err := pool.Run("mongo", "7.0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	_ = resource.Expire(300)

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))

	var client *mongo.Client
	require.NoError(t, pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := NewClient(ctx, Config{URI: uri, Database: "test", ConnectTimeout: 5 * time.Second, MaxPoolSize: 10})
		if err != nil {
			return err
		}
		client = c
		return nil
	}))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func seedListing(n int) *domain.Listing {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Listing{
		Title:     fmt.Sprintf("Plot %d", n),
		Location:  "kitengela",
		Type:      domain.TypePlot,
		Status:    domain.StatusAvailable,
		Price:     "KES 500,000",
		PriceNum:  500000,
		PlotSize:  "50x100",
		Whatsapp:  "254700000000",
		Amenities: []string{"water"},
		Images:    []string{},
		MediaIDs:  []string{},
		CreatedAt: now.Add(time.Duration(n) * time.Second),
		UpdatedAt: now.Add(time.Duration(n) * time.Second),
	}
}

func TestListingRepositoryRoundTrip(t *testing.T) {
	client := startMongo(t)
	repo := NewListingRepository(client, "test_roundtrip")
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureIndexes(ctx))

	created := seedListing(1)
	created.Images = []string{"http://media.local/listing-media/listings/a.jpg"}
	created.MediaIDs = []string{"listings/a.jpg"}

	id, err := repo.Create(ctx, created)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	created.ID = id

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Location, got.Location)
	assert.Equal(t, created.Type, got.Type)
	assert.Equal(t, created.Images, got.Images)
	assert.Equal(t, created.MediaIDs, got.MediaIDs)

	got.Status = domain.StatusSold
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, got))

	after, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, after.Status)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepositoryNotFoundMapping(t *testing.T) {
	client := startMongo(t)
	repo := NewListingRepository(client, "test_notfound")
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "not-a-hex-id")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, err = repo.GetByID(ctx, "66b000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	err = repo.Update(ctx, &domain.Listing{ID: "66b000000000000000000000", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	err = repo.Delete(ctx, "66b000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepositoryListFilters(t *testing.T) {
	client := startMongo(t)
	repo := NewListingRepository(client, "test_filters")
	ctx := context.Background()

	first := seedListing(1)
	second := seedListing(2)
	second.Location = "naivasha"
	second.Type = domain.TypeRanch
	second.Status = domain.StatusSold

	for _, l := range []*domain.Listing{first, second} {
		_, err := repo.Create(ctx, l)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Plot 2", all[0].Title, "newest first")

	sold, err := repo.List(ctx, domain.Filter{Status: domain.StatusSold})
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, domain.TypeRanch, sold[0].Type)

	// Location matching is a case-insensitive substring.
	located, err := repo.List(ctx, domain.Filter{Location: "KITEN"})
	require.NoError(t, err)
	require.Len(t, located, 1)
	assert.Equal(t, "kitengela", located[0].Location)

	none, err := repo.List(ctx, domain.Filter{Type: domain.TypeCommercialLand})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSchemaRejectsInvalidDocument(t *testing.T) {
	client := startMongo(t)
	repo := NewListingRepository(client, "test_schema")
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))

	bad := seedListing(1)
	bad.PriceNum = -10

	_, err := repo.Create(ctx, bad)
	require.Error(t, err, "collection validator rejects negative prices")
	var storeErr *domain.StoreError
	assert.ErrorAs(t, err, &storeErr)
}
