package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avolkov/picshare/backend/internal/models"
)

var (
	// ErrDuplicateUsername is returned when a signup collides with an
	// existing username.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateImageURL is returned when an image insert collides
	// with an already stored URL.
	ErrDuplicateImageURL = errors.New("image url already exists")
	// ErrNotFound is returned when a lookup or delete matches no row.
	ErrNotFound = errors.New("record not found")
)

const uniqueViolation = "23505"

// PostgresStore handles user and image CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users and images tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         BIGSERIAL PRIMARY KEY,
			username   VARCHAR(50)  UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS images (
			id          BIGSERIAL PRIMARY KEY,
			image_url   TEXT UNIQUE NOT NULL,
			image_name  TEXT NOT NULL,
			permission  TEXT NOT NULL CHECK (permission IN ('public', 'private')),
			date_posted TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			owner_name  TEXT NOT NULL,
			owner_id    BIGINT NOT NULL REFERENCES users(id)
		)
	`)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password)
		 VALUES ($1, $2)
		 RETURNING id, username, created_at`,
		username, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateImage inserts one image row and returns it with its assigned
// id and timestamp. Each call is its own transaction; batch uploads
// commit file by file.
func (s *PostgresStore) CreateImage(ctx context.Context, img *models.Image) (*models.Image, error) {
	var saved models.Image
	err := s.pool.QueryRow(ctx,
		`INSERT INTO images (image_url, image_name, permission, owner_name, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, image_url, image_name, permission, date_posted, owner_name, owner_id`,
		img.ImageURL, img.ImageName, img.Permission, img.OwnerName, img.OwnerID,
	).Scan(&saved.ID, &saved.ImageURL, &saved.ImageName, &saved.Permission,
		&saved.DatePosted, &saved.OwnerName, &saved.OwnerID)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateImageURL
	}
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	return &saved, nil
}

// ListPublicImages returns every public image, newest first.
func (s *PostgresStore) ListPublicImages(ctx context.Context) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT id, image_url, image_name, permission, date_posted, owner_name, owner_id
		 FROM images WHERE permission = 'public'
		 ORDER BY date_posted DESC, id DESC`)
}

// ListImagesByOwner returns every image owned by ownerID regardless of
// visibility, newest first.
func (s *PostgresStore) ListImagesByOwner(ctx context.Context, ownerID int64) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT id, image_url, image_name, permission, date_posted, owner_name, owner_id
		 FROM images WHERE owner_id = $1
		 ORDER BY date_posted DESC, id DESC`, ownerID)
}

func (s *PostgresStore) listImages(ctx context.Context, query string, args ...any) ([]models.Image, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.ImageURL, &img.ImageName, &img.Permission,
			&img.DatePosted, &img.OwnerName, &img.OwnerID); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *PostgresStore) GetImageByID(ctx context.Context, id int64) (*models.Image, error) {
	var img models.Image
	err := s.pool.QueryRow(ctx,
		`SELECT id, image_url, image_name, permission, date_posted, owner_name, owner_id
		 FROM images WHERE id = $1`, id,
	).Scan(&img.ID, &img.ImageURL, &img.ImageName, &img.Permission,
		&img.DatePosted, &img.OwnerName, &img.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
