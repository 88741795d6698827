package actions

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

type CreateRule struct {
	Create rule.RuleCreate

	Result *rule.Rule
	IAction
}

func (c *CreateRule) Perform(ctx context.Context, writer *storage.Writer) error {
	candidate := rule.Rule{
		Name:     c.Create.Name,
		Field:    c.Create.Field,
		Operator: c.Create.Operator,
		Value:    c.Create.Value,
		Category: c.Create.Category,
		Flag:     c.Create.Flag,
	}
	if err := matcher.Validate(&candidate); err != nil {
		return err
	}

	id, err := writer.Rules.Insert(ctx, &c.Create)
	if err != nil {
		return err
	}
	c.Result, err = writer.Rules.FindByID(ctx, id)
	return err
}

// UpdateRule validates the rule as it would look after the update before
// writing it.
type UpdateRule struct {
	ID     uuid.UUID
	Update rule.RuleUpdate

	Result *rule.Rule
	IAction
}

func (u *UpdateRule) Perform(ctx context.Context, writer *storage.Writer) error {
	existing, err := writer.Rules.FindByID(ctx, u.ID)
	if err != nil {
		return err
	}
	candidate := u.Update.Apply(*existing)
	if err := matcher.Validate(&candidate); err != nil {
		return err
	}

	if err := writer.Rules.Update(ctx, u.ID, &u.Update); err != nil {
		return err
	}
	u.Result, err = writer.Rules.FindByID(ctx, u.ID)
	return err
}

type DeleteRule struct {
	ID uuid.UUID
	IAction
}

func (d *DeleteRule) Perform(ctx context.Context, writer *storage.Writer) error {
	return writer.Rules.Delete(ctx, d.ID)
}
