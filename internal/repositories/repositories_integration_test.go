package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/repositories"
)

// setupTestDatabase starts a PostgreSQL container and applies the embedded migrations
func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, db.Migrate(ctx))

	return db
}

func strPtr(s string) *string { return &s }

func TestRepositories(t *testing.T) {
	db := setupTestDatabase(t)

	t.Run("order upsert converges on one row per payment id", func(t *testing.T) {
		ctx := context.Background()
		repo := repositories.NewOrderRepository(db)

		first, created, err := repo.UpsertByPaymentID(ctx, &models.Order{
			CustomerName: "Ana", Email: "ana@example.com", Product: "Pijama",
			Quantity: 1, Total: "R$ 10.00", Status: models.OrderStatusPending,
			Address: "Rua A", PaymentID: strPtr("pay-1"),
		})
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := repo.UpsertByPaymentID(ctx, &models.Order{
			CustomerName: "Ana", Email: "", Product: "Pijama",
			Quantity: 2, Total: "R$ 20.00", Status: models.OrderStatusApproved,
			Address: "Rua B", PaymentID: strPtr("pay-1"),
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.OrderStatusApproved, second.Status)
		assert.Equal(t, 2, second.Quantity)
		assert.Equal(t, "Rua B", second.Address)
		assert.Equal(t, "ana@example.com", second.Email, "empty email keeps the stored one")

		_, created, err = repo.UpsertByPaymentID(ctx, &models.Order{
			CustomerName: "Bia", Product: "Camisola", Quantity: 1,
			Total: "R$ 5.00", Status: models.OrderStatusPending, Address: "—",
			PaymentID: strPtr("pay-2"),
		})
		require.NoError(t, err)
		assert.True(t, created)

		orders, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, orders, 2)
	})

	t.Run("concurrent upserts for one payment id never duplicate", func(t *testing.T) {
		ctx := context.Background()
		repo := repositories.NewOrderRepository(db)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := repo.UpsertByPaymentID(ctx, &models.Order{
					CustomerName: "Cli", Product: "P", Quantity: 1, Total: "R$ 1.00",
					Status: models.OrderStatusPending, Address: "—", PaymentID: strPtr("pay-race"),
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		var count int
		require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE payment_id = 'pay-race'`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("orders without payment id do not collide", func(t *testing.T) {
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			_, err := db.Pool.Exec(ctx, `INSERT INTO orders (customer_name, product, total) VALUES ('Manual', 'P', 'R$ 1.00')`)
			require.NoError(t, err)
		}
	})

	t.Run("order status update and listing by email", func(t *testing.T) {
		ctx := context.Background()
		repo := repositories.NewOrderRepository(db)

		order, err := repo.GetByPaymentID(ctx, "pay-1")
		require.NoError(t, err)

		updated, err := repo.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, updated.Status)

		mine, err := repo.ListByEmail(ctx, "ANA@example.com")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, order.ID, mine[0].ID)

		_, err = repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", models.OrderStatusShipped)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("users and verification tokens", func(t *testing.T) {
		ctx := context.Background()
		users := repositories.NewUserRepository(db)
		tokens := repositories.NewEmailVerificationRepository(db)

		user, err := users.Create(ctx, &models.User{Name: "Carla", Email: "Carla@Example.com", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, "carla@example.com", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)

		_, err = users.Create(ctx, &models.User{Name: "Dup", Email: "carla@example.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, models.ErrConflict)

		_, err = tokens.Replace(ctx, user.ID, "old-hash", user.Email, time.Now().Add(time.Hour))
		require.NoError(t, err)
		tok, err := tokens.Replace(ctx, user.ID, "new-hash", user.Email, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = tokens.GetByTokenHash(ctx, "old-hash")
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, tokens.Consume(ctx, tok.ID, user.ID))
		assert.ErrorIs(t, tokens.Consume(ctx, tok.ID, user.ID), models.ErrInvalidToken)

		verified, err := users.GetByEmail(ctx, "CARLA@example.com")
		require.NoError(t, err)
		assert.True(t, verified.EmailVerified)

		require.NoError(t, users.SetResetToken(ctx, user.ID, "reset-hash", time.Now().Add(15*time.Minute)))
		byReset, err := users.GetByResetTokenHash(ctx, "reset-hash")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byReset.ID)

		require.NoError(t, users.UpdatePassword(ctx, user.ID, "new-password-hash"))
		_, err = users.GetByResetTokenHash(ctx, "reset-hash")
		assert.ErrorIs(t, err, models.ErrNotFound)

		role := models.RoleAdmin
		changed, err := users.Update(ctx, user.ID, models.UserUpdate{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, changed.Role)
		assert.Equal(t, "Carla", changed.Name)

		require.NoError(t, users.Delete(ctx, user.ID))
		assert.ErrorIs(t, users.Delete(ctx, user.ID), models.ErrNotFound)
	})

	t.Run("products by category", func(t *testing.T) {
		ctx := context.Background()
		repo := repositories.NewProductRepository(db)

		weight := 0.4
		p, err := repo.Create(ctx, &models.Product{Name: "Pijama", Price: "89.90", Category: "Feminino", Weight: &weight})
		require.NoError(t, err)
		assert.Equal(t, "feminino", p.Category)

		_, err = repo.Create(ctx, &models.Product{Name: "Short", Price: "49.90", Category: "masculino"})
		require.NoError(t, err)

		all, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		fem, err := repo.List(ctx, "FEMININO")
		require.NoError(t, err)
		require.Len(t, fem, 1)
		assert.Equal(t, "Pijama", fem[0].Name)

		deleted, err := repo.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, deleted.ID)
	})

	t.Run("newsletter rejects duplicates", func(t *testing.T) {
		ctx := context.Background()
		repo := repositories.NewNewsletterRepository(db)

		_, err := repo.Subscribe(ctx, "news@example.com")
		require.NoError(t, err)
		_, err = repo.Subscribe(ctx, "NEWS@example.com")
		assert.ErrorIs(t, err, models.ErrConflict)

		emails, err := repo.ListEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"news@example.com"}, emails)
	})
}
