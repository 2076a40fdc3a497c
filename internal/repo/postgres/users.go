package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/familytree/internal/domain/user"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = user.ErrNotFound
	ErrEmailAlreadyUsed = user.ErrEmailTaken
)

const userColumns = `id, name, email, password, role, photo, verified, provider, created_at, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

func (r *UsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.metrics.ObserveDB("users.exists_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
			user.NormalizeEmail(email),
		).Scan(&exists)
	})

	return exists, err
}

// Create inserts a locally registered user. The hash must already be computed.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	var created user.User

	err := r.metrics.ObserveDB("users.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password, role, photo, verified, provider)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING `+userColumns,
			u.Name, u.Email, u.PasswordHash, u.Role, u.Photo, u.Verified, u.Provider,
		)

		var err error
		created, err = scanUser(row)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return created, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.get_by_email", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE email = $1`,
			user.NormalizeEmail(email),
		)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {

			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	// ids come from token subjects; anything that is not a uuid cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, ErrUserNotFound
	}

	var u user.User

	err := r.metrics.ObserveDB("users.get_by_id", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE id = $1`,
			id,
		)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// UpdateOAuthProfile refreshes the email and photo of an existing account
// after a federated login.
func (r *UsersRepo) UpdateOAuthProfile(ctx context.Context, id, email, photo string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.update_oauth_profile", func() error {
		row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $1, photo = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+userColumns,
			user.NormalizeEmail(email), photo, id,
		)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}
	return u, nil
}

// InsertOAuthUser creates an account for a first federated login. The id is
// generated by the caller.
func (r *UsersRepo) InsertOAuthUser(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	var created user.User

	err := r.metrics.ObserveDB("users.insert_oauth_user", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO users (id, name, email, photo, verified, provider, role, password, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,'',NOW(),NOW())
			RETURNING `+userColumns,
			u.ID, u.Name, u.Email, u.Photo, u.Verified, u.Provider, u.Role,
		)

		var err error
		created, err = scanUser(row)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}
	return created, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Photo,
		&u.Verified,
		&u.Provider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
