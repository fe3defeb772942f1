package testutil

import (
	"context"
	"errors"
	"testing"

	repotestutil "github.com/yungbote/reforest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reforest-backend/internal/domain"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

func TestInjectedTxRunner_CommitsOnSuccess(t *testing.T) {
	r := &InjectedTxRunner{}
	called := false
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !called {
		t.Fatalf("expected callback to run")
	}
	if r.BeginCalls != 1 || r.CommitCalls != 1 || r.RollbackCalls != 0 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunner_RollbackOnBodyError(t *testing.T) {
	r := &InjectedTxRunner{}
	bodyErr := errors.New("boom")
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		return bodyErr
	})
	if !errors.Is(err, bodyErr) {
		t.Fatalf("expected body err, got %v", err)
	}
	if r.BeginCalls != 1 || r.CommitCalls != 0 || r.RollbackCalls != 1 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunner_FailCommitTriggersRollback(t *testing.T) {
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{FailCommit: commitErr}
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		return nil
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit err, got %v", err)
	}
	if r.BeginCalls != 1 || r.CommitCalls != 0 || r.RollbackCalls != 1 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunner_FailCommitRollsBackRealWrites(t *testing.T) {
	db := repotestutil.DB(t)
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{DB: db, FailCommit: commitErr}

	err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		if dbc.Tx == nil {
			t.Fatalf("expected a bound transaction")
		}
		return dbc.Tx.Create(&types.User{UID: "usr_rollback", Email: "rollback@example.com", IsActive: true}).Error
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit err, got %v", err)
	}
	var n int64
	if err := db.Model(&types.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback to discard the insert, found %d users", n)
	}
	if r.RollbackCalls != 1 || r.CommitCalls != 0 {
		t.Fatalf("unexpected counters commit=%d rollback=%d", r.CommitCalls, r.RollbackCalls)
	}
}
