package postgres

import "context"

type addressBook struct {
	storage *Storage
}

func (a *addressBook) Owns(ctx context.Context, userID, addressID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM addresses WHERE id=$1 AND user_id=$2)`
	var owns bool
	if err := a.storage.pool.QueryRow(ctx, query, addressID, userID).Scan(&owns); err != nil {
		return false, err
	}
	return owns, nil
}

type cartStore struct {
	storage *Storage
}

func (c *cartStore) Clear(ctx context.Context, userID int64) error {
	_, err := c.storage.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
