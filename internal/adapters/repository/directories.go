package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/ports"
)

// UserDirectory reads assignees from the users table
type UserDirectory struct {
	db *sqlx.DB
}

var _ ports.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(db *sqlx.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) GetByID(ctx context.Context, id int) (*entities.User, error) {
	query := d.db.Rebind(`SELECT id, name, email FROM users WHERE id = ?`)

	var user entities.User
	if err := d.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// ClientDirectory reads clients from the clients table
type ClientDirectory struct {
	db *sqlx.DB
}

var _ ports.ClientDirectory = (*ClientDirectory)(nil)

func NewClientDirectory(db *sqlx.DB) *ClientDirectory {
	return &ClientDirectory{db: db}
}

func (d *ClientDirectory) GetByID(ctx context.Context, id int) (*entities.Client, error) {
	query := d.db.Rebind(`SELECT id, name FROM clients WHERE id = ?`)

	var client entities.Client
	if err := d.db.GetContext(ctx, &client, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrClientNotFound
		}
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return &client, nil
}
