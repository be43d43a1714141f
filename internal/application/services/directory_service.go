package services

import (
	"context"
	"errors"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/ports"
)

// DirectoryService resolves assignee and client names for display
type DirectoryService struct {
	users   ports.UserDirectory
	clients ports.ClientDirectory
	logger  *logger.Logger
}

// NewDirectoryService creates a new directory service. Either directory may be nil.
func NewDirectoryService(users ports.UserDirectory, clients ports.ClientDirectory, appLogger *logger.Logger) *DirectoryService {
	return &DirectoryService{
		users:   users,
		clients: clients,
		logger:  appLogger.WithComponent("directory-service"),
	}
}

// AssigneeName returns the user's name, or "" when unassigned or unknown
func (s *DirectoryService) AssigneeName(ctx context.Context, userID int) string {
	if s.users == nil || userID == 0 {
		return ""
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("User lookup failed", "user_id", userID, "error", err)
		}
		return ""
	}
	return user.Name
}

// ClientName returns the client's name, or "" when unset or unknown
func (s *DirectoryService) ClientName(ctx context.Context, clientID int) string {
	if s.clients == nil || clientID == 0 {
		return ""
	}
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, entities.ErrClientNotFound) {
			s.logger.Warnw("Client lookup failed", "client_id", clientID, "error", err)
		}
		return ""
	}
	return client.Name
}
