package repository

import (
	"context"
	"errors"

	"github.com/rsonetv/motoauto-bidding/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository is the append-only bid ledger. Acceptance and retraction are
// transactional: the ledger rows and the auction projection commit together
// or not at all.
type BidRepository interface {
	AppendAccepted(ctx context.Context, auction *models.Auction, entries []models.Bid) error
	GetBid(ctx context.Context, bidID string) (*models.Bid, error)
	ListBids(ctx context.Context, auctionID string, includeRetracted bool, limit, offset int) ([]models.Bid, error)
	ListActiveBids(ctx context.Context, auctionID string) ([]models.Bid, error)
	SetRetracted(ctx context.Context, auction *models.Auction, bidID string) error
}

// PostgresBidRepository is the BidRepository implementation for the database.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository creates a new PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, auction_id, bidder_id, amount, max_proxy_amount, is_auto_bid,
	is_winning, retracted, sequence, placed_at`

const updateAuctionQuery = `UPDATE auctions
	SET current_bid = $1, current_winner_id = $2, reserve_met = $3, ends_at = $4,
	    extension_count = $5, status = $6
	WHERE id = $7`

// AppendAccepted inserts the ledger entries created by one accepted bid and
// the matching projection update in a single transaction.
func (r *PostgresBidRepository) AppendAccepted(ctx context.Context, auction *models.Auction, entries []models.Bid) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO bids (` + bidColumns + `)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, bid := range entries {
		_, err = tx.Exec(
			ctx,
			insertQuery,
			bid.ID,
			bid.AuctionID,
			bid.BidderID,
			bid.Amount,
			bid.MaxProxyAmount,
			bid.IsAutoBid,
			bid.IsWinning,
			bid.Retracted,
			bid.Sequence,
			bid.PlacedAt)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		ctx,
		updateAuctionQuery,
		auction.CurrentBid,
		auction.CurrentWinnerID,
		auction.ReserveMet,
		auction.EndsAt,
		auction.ExtensionCount,
		auction.Status,
		auction.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetBid returns one ledger entry by id.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidID string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, bidID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	return bid, nil
}

// ListBids returns the ordered ledger for an auction.
func (r *PostgresBidRepository) ListBids(ctx context.Context, auctionID string, includeRetracted bool, limit, offset int) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids
	         WHERE auction_id = $1 AND (retracted = false OR $2)
	         ORDER BY sequence
	         LIMIT $3 OFFSET $4`
	rows, err := r.DB.Query(ctx, query, auctionID, includeRetracted, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

// ListActiveBids returns every non-retracted entry for an auction in ledger
// order, used for projection replay.
func (r *PostgresBidRepository) ListActiveBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids
	         WHERE auction_id = $1 AND retracted = false
	         ORDER BY sequence`
	rows, err := r.DB.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

// SetRetracted flags one entry and persists the recomputed projection in a
// single transaction.
func (r *PostgresBidRepository) SetRetracted(ctx context.Context, auction *models.Auction, bidID string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE bids SET retracted = true WHERE id = $1`, bidID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	_, err = tx.Exec(
		ctx,
		updateAuctionQuery,
		auction.CurrentBid,
		auction.CurrentWinnerID,
		auction.ReserveMet,
		auction.EndsAt,
		auction.ExtensionCount,
		auction.Status,
		auction.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&bid.MaxProxyAmount,
		&bid.IsAutoBid,
		&bid.IsWinning,
		&bid.Retracted,
		&bid.Sequence,
		&bid.PlacedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func collectBids(rows pgx.Rows) ([]models.Bid, error) {
	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}
