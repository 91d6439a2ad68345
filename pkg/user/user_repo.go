package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, userId int, user User) (User, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, timezone, google_calendar_id)
				VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		user.Settings.Timezone,
		user.Settings.GoogleCalendar.CalendarId,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, uid, username, display_name, timezone, google_calendar_id FROM users WHERE id = $1`
	return u.scanUser(u.db.QueryRow(ctx, query, id))
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT id, uid, username, display_name, timezone, google_calendar_id FROM users WHERE uid = $1`
	return u.scanUser(u.db.QueryRow(ctx, query, uid))
}

func (u *UserRepoImpl) UpdateUser(ctx context.Context, userId int, user User) (User, error) {
	query := `UPDATE users SET username = $1, display_name = $2, timezone = $3, google_calendar_id = $4
				WHERE id = $5`
	tag, err := u.db.Exec(ctx, query,
		user.Username,
		user.DisplayName,
		user.Settings.Timezone,
		user.Settings.GoogleCalendar.CalendarId,
		userId,
	)
	if err != nil {
		log.Errorf("failed to update user %d: %v", userId, err)
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrUserNotFound
	}
	user.Id = userId
	return user, nil
}

func (u *UserRepoImpl) scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&user.Settings.Timezone,
		&user.Settings.GoogleCalendar.CalendarId,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}
