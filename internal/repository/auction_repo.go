package repository

import (
	"context"
	"errors"

	"github.com/rsonetv/motoauto-bidding/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows is returned when a requested auction or bid does not exist.
var ErrNoRows = errors.New("no rows found")

// AuctionRepository stores auction records and their current-state projection.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *models.Auction) error
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	ListOpenAuctions(ctx context.Context) ([]models.Auction, error)
	UpdateAuctionState(ctx context.Context, auction *models.Auction) error
}

// PostgresAuctionRepository is the AuctionRepository implementation for the database.
type PostgresAuctionRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresAuctionRepository creates a new PostgresAuctionRepository.
func NewPostgresAuctionRepository(db *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{DB: db}
}

const auctionColumns = `id, listing_id, seller_id, starting_price, min_increment, reserve_price,
	current_bid, current_winner_id, reserve_met, ends_at, soft_close_enabled,
	extension_seconds, extension_count, max_extensions, status, created_at`

// CreateAuction inserts a new auction row.
func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, auction *models.Auction) error {
	insertQuery := `INSERT INTO auctions (` + auctionColumns + `)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		auction.ID,
		auction.ListingID,
		auction.SellerID,
		auction.StartingPrice,
		auction.MinIncrement,
		auction.ReservePrice,
		auction.CurrentBid,
		auction.CurrentWinnerID,
		auction.ReserveMet,
		auction.EndsAt,
		auction.SoftCloseEnabled,
		auction.ExtensionSeconds,
		auction.ExtensionCount,
		auction.MaxExtensions,
		auction.Status,
		auction.CreatedAt)
	return err
}

// GetAuction returns one auction by id.
func (r *PostgresAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	auction, err := scanAuction(r.DB.QueryRow(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	return auction, nil
}

// ListOpenAuctions returns every auction still marked open, used to restore
// close timers after a restart.
func (r *PostgresAuctionRepository) ListOpenAuctions(ctx context.Context) ([]models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1 ORDER BY ends_at`
	rows, err := r.DB.Query(ctx, query, models.OpenAuction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []models.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *auction)
	}
	return auctions, rows.Err()
}

// UpdateAuctionState persists the mutable projection fields of an auction.
func (r *PostgresAuctionRepository) UpdateAuctionState(ctx context.Context, auction *models.Auction) error {
	updateQuery := `UPDATE auctions
	               SET current_bid = $1, current_winner_id = $2, reserve_met = $3, ends_at = $4,
	                   extension_count = $5, status = $6
	               WHERE id = $7`
	_, err := r.DB.Exec(
		ctx,
		updateQuery,
		auction.CurrentBid,
		auction.CurrentWinnerID,
		auction.ReserveMet,
		auction.EndsAt,
		auction.ExtensionCount,
		auction.Status,
		auction.ID)
	return err
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var auction models.Auction
	err := row.Scan(
		&auction.ID,
		&auction.ListingID,
		&auction.SellerID,
		&auction.StartingPrice,
		&auction.MinIncrement,
		&auction.ReservePrice,
		&auction.CurrentBid,
		&auction.CurrentWinnerID,
		&auction.ReserveMet,
		&auction.EndsAt,
		&auction.SoftCloseEnabled,
		&auction.ExtensionSeconds,
		&auction.ExtensionCount,
		&auction.MaxExtensions,
		&auction.Status,
		&auction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
