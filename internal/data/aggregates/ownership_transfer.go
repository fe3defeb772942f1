package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/user"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

func (a *interventionAggregate) TransferOwnership(ctx context.Context, in domainagg.TransferOwnershipInput) (domainagg.TransferOwnershipResult, error) {
	const op = "Interventions.TransferOwnership"
	var out domainagg.TransferOwnershipResult
	if !a.reposConfigured() || a.deps.Members == nil || a.deps.Users == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "ownership collaborators not configured", nil)
	}
	if in.InterventionID <= 0 || in.NewOwnerID <= 0 || in.RequesterID <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "intervention_id, new_owner_id and requester_id are required", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		inv, err := a.deps.Interventions.GetByID(dbc, in.InterventionID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("intervention %d not found", in.InterventionID), nil)
		}
		if inv.Status.Terminal() {
			return domainagg.NewReasonError(domainagg.CodeForbidden, op, domainagg.ReasonTerminalStatus,
				fmt.Sprintf("cannot transfer %s intervention", inv.Status), nil)
		}

		if inv.UserID != in.RequesterID {
			role, err := a.deps.Members.GetRole(dbc.Ctx, inv.ProjectID, in.RequesterID)
			if err != nil {
				return err
			}
			if !user.RoleAtLeast(role, user.RoleAdmin) {
				return domainagg.NewReasonError(domainagg.CodeForbidden, op, domainagg.ReasonInsufficientRole,
					"only the owner or a project admin can transfer this intervention", nil)
			}
		}

		newOwner, err := a.deps.Users.GetUser(dbc.Ctx, in.NewOwnerID)
		if err != nil {
			return err
		}
		if newOwner == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user %d not found", in.NewOwnerID), nil)
		}
		if !newOwner.IsActive {
			return domainagg.NewReasonError(domainagg.CodeNotFound, op, domainagg.ReasonInactiveUser,
				fmt.Sprintf("user %d is not active", in.NewOwnerID), nil)
		}
		newRole, err := a.deps.Members.GetRole(dbc.Ctx, inv.ProjectID, in.NewOwnerID)
		if err != nil {
			return err
		}
		if !user.RoleAtLeast(newRole, user.RoleContributor) {
			return domainagg.NewReasonError(domainagg.CodeValidation, op, domainagg.ReasonInsufficientRole,
				fmt.Sprintf("user %d needs at least the contributor role on project %d", in.NewOwnerID, inv.ProjectID), nil)
		}
		if in.NewOwnerID == inv.UserID {
			return domainagg.NewReasonError(domainagg.CodeForbidden, op, domainagg.ReasonSelfTransfer,
				"intervention already belongs to this user", nil)
		}

		plan, err := a.integrity.PlanOwnershipChange(dbc, inv, in.NewOwnerID)
		if err != nil {
			return err
		}
		n, err := a.integrity.Apply(dbc, plan)
		if err != nil {
			return err
		}
		out = domainagg.TransferOwnershipResult{
			InterventionID:   inv.ID,
			InterventionUID:  inv.UID,
			ProjectID:        inv.ProjectID,
			PreviousOwnerID:  inv.UserID,
			NewOwnerID:       in.NewOwnerID,
			TreesTransferred: n,
			ChangedFields:    plan.ChangedFields,
			TransferredAt:    plan.InterventionUpdates["edited_at"].(time.Time),
		}
		return nil
	})
	if err != nil {
		return domainagg.TransferOwnershipResult{}, err
	}

	a.deps.Base.Log.Info("Intervention ownership transferred",
		"intervention_id", out.InterventionID,
		"owner_id", out.PreviousOwnerID,
		"new_owner_id", out.NewOwnerID,
		"requester_id", in.RequesterID,
		"trees", out.TreesTransferred,
		"reason", strings.TrimSpace(in.Reason),
	)
	return out, nil
}

// BulkTransferOwnership runs one transaction per id. Failures are collected,
// never rolled back across items, and only a cancelled context stops the loop.
func (a *interventionAggregate) BulkTransferOwnership(ctx context.Context, in domainagg.BulkTransferOwnershipInput) (domainagg.BulkTransferOwnershipResult, error) {
	out := domainagg.BulkTransferOwnershipResult{
		Successful: []domainagg.TransferOwnershipResult{},
		Failed:     []domainagg.BulkTransferFailure{},
	}
	for _, id := range in.InterventionIDs {
		if err := ctx.Err(); err != nil {
			out.Failed = append(out.Failed, domainagg.BulkTransferFailure{ID: id, Code: domainagg.CodeRetryable, Error: err.Error()})
			continue
		}
		res, err := a.TransferOwnership(ctx, domainagg.TransferOwnershipInput{
			InterventionID: id,
			NewOwnerID:     in.NewOwnerID,
			RequesterID:    in.RequesterID,
			Reason:         in.Reason,
			Notify:         in.Notify,
		})
		if err != nil {
			out.Failed = append(out.Failed, domainagg.BulkTransferFailure{
				ID:    id,
				Code:  domainagg.CodeOf(err),
				Error: ErrorMessage(err),
			})
			continue
		}
		out.Successful = append(out.Successful, res)
	}
	return out, nil
}
