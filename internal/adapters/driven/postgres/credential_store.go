package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL.
// Token material is encrypted into a single secret_blob column; the
// partial unique index on (user_id, platform) WHERE active backs up
// the transactional supersede in Put.
type CredentialStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewCredentialStore creates a new PostgreSQL-backed credential store.
func NewCredentialStore(db *DB, encryptor *SecretEncryptor) *CredentialStore {
	return &CredentialStore{
		db:        db,
		encryptor: encryptor,
	}
}

const credentialColumns = `id, platform, user_id, display_name, secret_blob, scopes,
	expires_at, active, last_refreshed, rate_limit_remaining, rate_limit_reset,
	created_at, updated_at`

// Put upserts a credential. Any other active credential for the same
// (user, platform) is deactivated in the same transaction, so there is
// never a window with two active records for one connection.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	var secretBlob []byte
	if cred.Secrets != nil {
		var err error
		secretBlob, err = s.encryptor.Encrypt(cred.Secrets)
		if err != nil {
			return fmt.Errorf("encrypt secrets: %w", err)
		}
	}

	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if cred.Active {
			_, err := tx.ExecContext(ctx, `
				UPDATE credentials
				SET active = FALSE, updated_at = $1
				WHERE user_id = $2 AND platform = $3 AND active AND id <> $4
			`, now, cred.UserID, cred.Platform, cred.ID)
			if err != nil {
				return fmt.Errorf("supersede prior credential: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (
				id, platform, user_id, display_name, secret_blob, scopes,
				expires_at, active, last_refreshed, rate_limit_remaining,
				rate_limit_reset, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				platform = EXCLUDED.platform,
				user_id = EXCLUDED.user_id,
				display_name = EXCLUDED.display_name,
				secret_blob = EXCLUDED.secret_blob,
				scopes = EXCLUDED.scopes,
				expires_at = EXCLUDED.expires_at,
				active = EXCLUDED.active,
				last_refreshed = EXCLUDED.last_refreshed,
				rate_limit_remaining = EXCLUDED.rate_limit_remaining,
				rate_limit_reset = EXCLUDED.rate_limit_reset,
				updated_at = EXCLUDED.updated_at
		`,
			cred.ID,
			cred.Platform,
			cred.UserID,
			cred.DisplayName,
			secretBlob,
			pq.Array(cred.Scopes),
			cred.ExpiresAt,
			cred.Active,
			cred.LastRefreshed,
			NullInt(cred.RateLimitRemaining),
			NullTime(cred.RateLimitReset),
			cred.CreatedAt,
			cred.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		return nil
	})
}

// Get retrieves a credential by ID with decrypted secrets.
func (s *CredentialStore) Get(ctx context.Context, id string) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
	return s.scanCredential(row)
}

// FindActive returns the active credential for (userID, platform).
func (s *CredentialStore) FindActive(ctx context.Context, userID string, platform domain.Platform) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE user_id = $1 AND platform = $2 AND active`, userID, platform)
	return s.scanCredential(row)
}

// ListByUser returns all of a user's credentials, most recently
// refreshed first.
func (s *CredentialStore) ListByUser(ctx context.Context, userID string) ([]*domain.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE user_id = $1
		 ORDER BY last_refreshed DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := s.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

// ListExpiring returns active credentials expiring before the given
// time that carry a refresh token. The refresh token lives inside the
// encrypted blob, so that filter runs after decryption.
func (s *CredentialStore) ListExpiring(ctx context.Context, before time.Time) ([]*domain.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE active AND expires_at < $1
		 ORDER BY expires_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("list expiring credentials: %w", err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := s.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		if cred.HasRefreshToken() {
			creds = append(creds, cred)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring credentials: %w", err)
	}
	return creds, nil
}

// Update applies a field-level patch inside a transaction. The secret
// blob is re-encrypted from the stored value merged with the patch, so
// a patch without RefreshToken keeps the previously stored one. The
// row is locked for the read-modify-write of the blob.
func (s *CredentialStore) Update(ctx context.Context, id string, patch *domain.CredentialPatch) (*domain.Credential, error) {
	var updated *domain.Credential

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+credentialColumns+` FROM credentials WHERE id = $1 FOR UPDATE`, id)
		cred, err := s.scanCredential(row)
		if err != nil {
			return err
		}

		if patch.DisplayName != nil {
			cred.DisplayName = *patch.DisplayName
		}
		if patch.AccessToken != nil || patch.RefreshToken != nil {
			if cred.Secrets == nil {
				cred.Secrets = &domain.CredentialSecrets{}
			}
			if patch.AccessToken != nil {
				cred.Secrets.AccessToken = *patch.AccessToken
			}
			if patch.RefreshToken != nil {
				cred.Secrets.RefreshToken = *patch.RefreshToken
			}
		}
		if patch.Scopes != nil {
			cred.Scopes = patch.Scopes
		}
		if patch.ExpiresAt != nil {
			cred.ExpiresAt = *patch.ExpiresAt
		}
		if patch.Active != nil {
			cred.Active = *patch.Active
		}
		if patch.LastRefreshed != nil {
			cred.LastRefreshed = *patch.LastRefreshed
		}
		if patch.SetRateLimit {
			cred.RateLimitRemaining = patch.RateLimitRemaining
			cred.RateLimitReset = patch.RateLimitReset
		}
		cred.UpdatedAt = time.Now()

		var secretBlob []byte
		if cred.Secrets != nil {
			secretBlob, err = s.encryptor.Encrypt(cred.Secrets)
			if err != nil {
				return fmt.Errorf("encrypt secrets: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE credentials SET
				display_name = $1,
				secret_blob = $2,
				scopes = $3,
				expires_at = $4,
				active = $5,
				last_refreshed = $6,
				rate_limit_remaining = $7,
				rate_limit_reset = $8,
				updated_at = $9
			WHERE id = $10
		`,
			cred.DisplayName,
			secretBlob,
			pq.Array(cred.Scopes),
			cred.ExpiresAt,
			cred.Active,
			cred.LastRefreshed,
			NullInt(cred.RateLimitRemaining),
			NullTime(cred.RateLimitReset),
			cred.UpdatedAt,
			id,
		)
		if err != nil {
			return fmt.Errorf("update credential: %w", err)
		}

		updated = cred
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a credential by ID.
func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *CredentialStore) scanCredential(row scanner) (*domain.Credential, error) {
	var cred domain.Credential
	var secretBlob []byte
	var scopes []string
	var rateLimitRemaining sql.NullInt64
	var rateLimitReset sql.NullTime

	err := row.Scan(
		&cred.ID,
		&cred.Platform,
		&cred.UserID,
		&cred.DisplayName,
		&secretBlob,
		pq.Array(&scopes),
		&cred.ExpiresAt,
		&cred.Active,
		&cred.LastRefreshed,
		&rateLimitRemaining,
		&rateLimitReset,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	if len(secretBlob) > 0 {
		cred.Secrets = &domain.CredentialSecrets{}
		if err := s.encryptor.Decrypt(secretBlob, cred.Secrets); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	cred.Scopes = scopes
	cred.RateLimitRemaining = IntPtr(rateLimitRemaining)
	cred.RateLimitReset = TimePtr(rateLimitReset)

	return &cred, nil
}
