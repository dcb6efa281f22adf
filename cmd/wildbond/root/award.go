package root

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/store"
)

func newAwardCmd() *cobra.Command {
	var amount int
	var multiplier float64
	var source string
	var description string

	cmd := &cobra.Command{
		Use:   "award <character-id>",
		Short: "Award experience to a character",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("character id is required")
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

			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ledger := progression.NewLedger(db, progression.NewCurve(), events.NewSink(db))
			result, err := ledger.AwardExperience(cmd.Context(), progression.AwardInput{
				CharacterID: characterID,
				Amount:      amount,
				Multiplier:  multiplier,
				Source:      source,
				Description: description,
			})
			if err != nil {
				return err
			}

			if result.LeveledUp {
				fmt.Printf("Level up! %d -> %d (%s, %d XP into level)\n",
					result.OldLevel, result.NewLevel,
					result.Character.Title, result.Character.Experience)
			} else {
				fmt.Printf("Awarded. Level %d, %d XP into level.\n",
					result.NewLevel, result.Character.Experience)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&amount, "amount", "a", 0, "Experience amount")
	cmd.Flags().Float64VarP(&multiplier, "multiplier", "m", 1.0, "Experience multiplier")
	cmd.Flags().StringVarP(&source, "source", "s", "manual", "Award source tag")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-text description")

	return cmd
}
