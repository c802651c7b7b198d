package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
	"callroom/internal/infrastructure/repositories"
	"callroom/pkg/validation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <roomCode>",
	Short: "Show the owner, members and waiting list of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := domain.RoomCode(args[0])
		if err := validation.ValidateRoomCode(string(code)); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Only a shared store has anything to show.
		cfg.Redis.Enabled = true
		cfg.Redis.FallbackToMemory = false
		cfg.Redis.Retry.MaxAttempts = 1

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		factory, err := repositories.NewRepositoryFactory(ctx, cfg, zap.NewNop().Sugar())
		if err != nil {
			return err
		}
		defer factory.Close()

		snap, err := loadSnapshot(ctx, code,
			factory.CreatePresenceRepository(),
			factory.CreateMembershipRepository(),
			factory.CreateWaitingRepository(),
		)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), snap.View())
		return nil
	},
}

// roomSnapshot is what the store holds for one room at a point in time.
type roomSnapshot struct {
	Code    domain.RoomCode
	Members []snapshotEntry
	Waiting []snapshotEntry
}

// snapshotEntry is a listed user; Entry is nil when their presence expired.
type snapshotEntry struct {
	UserID domain.UserID
	Entry  *domain.PresenceEntry
}

func loadSnapshot(
	ctx context.Context,
	code domain.RoomCode,
	presence ports.PresenceRepository,
	members, waiting ports.UserListRepository,
) (*roomSnapshot, error) {
	snap := &roomSnapshot{Code: code}

	var err error
	if snap.Members, err = resolve(ctx, presence, members, code); err != nil {
		return nil, fmt.Errorf("failed to read members: %w", err)
	}
	if snap.Waiting, err = resolve(ctx, presence, waiting, code); err != nil {
		return nil, fmt.Errorf("failed to read waiting list: %w", err)
	}
	return snap, nil
}

func resolve(ctx context.Context, presence ports.PresenceRepository, list ports.UserListRepository, code domain.RoomCode) ([]snapshotEntry, error) {
	ids, err := list.List(ctx, code)
	if err != nil {
		return nil, err
	}

	out := make([]snapshotEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := presence.GetByUser(ctx, id)
		switch {
		case err == nil:
			out = append(out, snapshotEntry{UserID: id, Entry: entry})
		case errors.Is(err, domain.ErrPresenceNotFound):
			out = append(out, snapshotEntry{UserID: id})
		default:
			return nil, err
		}
	}
	return out, nil
}
