package migrations

import (
	"context"
	"fmt"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.RewardSubmission)(nil),
			(*types.Game)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		// The digest lists submissions oldest first
		_, err := db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_reward_submissions_time_submitted
			ON reward_submissions (time_submitted);
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create reward submission indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Game)(nil),
			(*types.RewardSubmission)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
