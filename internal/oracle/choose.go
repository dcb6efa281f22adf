package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Choice completions are short and sampled at full temperature so repeated
// rebellions do not all land on the same pick.
const (
	choiceMaxTokens   = 300
	choiceTemperature = 1.0
)

// Option is one selectable alternative, identified by a stable id.
// Selection is always by id, never by position, so a reordered option
// list can never drift the oracle's answer.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "equipment", "ability", or "stat"
}

// Context carries the character disposition the oracle weighs.
type Context struct {
	CharacterName string
	Adherence     int
	BondLevel     int
	Personality   string
	Situation     string // short description of what the coach proposed
}

// Choice is the oracle's selection, constrained to the offered set.
type Choice struct {
	SelectedID int64  `json:"selected_id"`
	Rationale  string `json:"rationale"`
}

// ErrOutOfSet marks an oracle answer outside the offered alternatives.
// This is a fatal integration error, never silently coerced.
type ErrOutOfSet struct {
	SelectedID int64
}

func (e ErrOutOfSet) Error() string {
	return fmt.Sprintf("oracle selected id %d, which is not among the offered alternatives", e.SelectedID)
}

// Chooser produces a character's own decision from a set of alternatives.
// Implementations must fail loudly when they cannot select within the set;
// the engine never invents a default choice on oracle failure.
type Chooser interface {
	Choose(ctx context.Context, proposed Option, alternatives []Option, cc Context) (*Choice, error)
}

// Choose asks the model to pick one of the alternatives in character.
// The proposed option is shown for context but must not be selected; the
// answer is validated against the alternative set before being returned.
func (c *Client) Choose(ctx context.Context, proposed Option, alternatives []Option, cc Context) (*Choice, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("oracle client not configured")
	}
	if len(alternatives) == 0 {
		return nil, fmt.Errorf("no alternatives offered")
	}

	system := buildChoiceSystemPrompt(cc)
	user := buildChoiceUserPrompt(proposed, alternatives, cc)

	responseText, err := c.Complete(ctx, system, user, choiceMaxTokens, choiceTemperature)
	if err != nil {
		return nil, fmt.Errorf("autonomous choice: %w", err)
	}

	choice, err := parseChoiceResponse(responseText)
	if err != nil {
		return nil, err
	}
	return ValidateChoice(choice, alternatives)
}

// ValidateChoice rejects any selection outside the offered set.
func ValidateChoice(choice *Choice, alternatives []Option) (*Choice, error) {
	for _, alt := range alternatives {
		if alt.ID == choice.SelectedID {
			return choice, nil
		}
	}
	return nil, ErrOutOfSet{SelectedID: choice.SelectedID}
}

func buildChoiceSystemPrompt(cc Context) string {
	return fmt.Sprintf(
		`You are %s, a creature with a will of your own. Your personality: %s.
Your adherence to your coach is %d/100 and your bond level is %d.

You have just refused your coach's instruction. Now you choose for yourself.

Respond ONLY with a single JSON object:
- "selected_id": the numeric id of the option you choose (must be one of the offered alternatives)
- "rationale": one sentence, in character, explaining why

Never select the coach's proposed option. Never invent an id that was not offered.`,
		cc.CharacterName, cc.Personality, cc.Adherence, cc.BondLevel,
	)
}

func buildChoiceUserPrompt(proposed Option, alternatives []Option, cc Context) string {
	var b strings.Builder

	if cc.Situation != "" {
		fmt.Fprintf(&b, "%s\n\n", cc.Situation)
	}
	fmt.Fprintf(&b, "Your coach proposed: %s (id %d). You refused it.\n\n", proposed.Name, proposed.ID)

	b.WriteString("Your alternatives:\n")
	for _, alt := range alternatives {
		fmt.Fprintf(&b, "- id %d: %s\n", alt.ID, alt.Name)
	}

	b.WriteString("\nWhich do you choose? Respond with a single JSON object.")
	return b.String()
}

func parseChoiceResponse(responseText string) (*Choice, error) {
	// Find the JSON object in the response (the model may add prose).
	start := strings.Index(responseText, "{")
	end := strings.LastIndex(responseText, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in oracle response")
	}

	var choice Choice
	if err := json.Unmarshal([]byte(responseText[start:end+1]), &choice); err != nil {
		return nil, fmt.Errorf("parse oracle choice: %w", err)
	}
	return &choice, nil
}
