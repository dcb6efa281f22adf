package root

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emberlane/wildbond/internal/mastery"
	"github.com/emberlane/wildbond/internal/store"
)

func newRankUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rankup <character-id> <spell-id>",
		Short: "Spend mastery points to promote a spell rank",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("character id and spell id are required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			characterID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid character id %q", args[0])
			}
			spellID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid spell id %q", args[1])
			}

			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := mastery.NewService(db).RankUp(cmd.Context(), characterID, spellID)
			if err != nil {
				return err
			}

			fmt.Printf("Rank %d reached. %d mastery points remaining.\n",
				result.NewRank, result.RemainingPoints)
			return nil
		},
	}
}
