package service

import (
	"context"
	"errors"
	"testing"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

func TestCreateAndGetUser(t *testing.T) {
	repo := newMemUserRepo()
	s := NewUserService(repo, nil, testConfig())
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "Alice@Example.com", Username: "alice"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %s", user.Email)
	}
	if !user.IsActive {
		t.Fatalf("expected new user to be active")
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("expected alice, got %s", got.Username)
	}
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	s := NewUserService(newMemUserRepo(), nil, testConfig())
	ctx := context.Background()

	cases := []CreateUserInput{
		{Email: "", Username: "x"},
		{Email: "not-an-email", Username: "x"},
		{Email: "a@b.c", Username: ""},
	}
	for _, in := range cases {
		if _, err := s.CreateUser(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestCreateUserDuplicateConflict(t *testing.T) {
	repo := newMemUserRepo()
	s := NewUserService(repo, nil, testConfig())
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "a@b.c", Username: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "a@b.c", Username: "other"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "other@b.c", Username: "alice"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	repo := newMemUserRepo()
	s := NewUserService(repo, nil, testConfig())
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "a@b.c", Username: "alice", FullName: "Alice"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	goal := 250.0
	updated, err := s.UpdateUser(ctx, user.ID, domain.UserUpdate{EnergyGoalKWh: &goal})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.EnergyGoalKWh == nil || *updated.EnergyGoalKWh != 250.0 {
		t.Fatalf("expected goal 250, got %v", updated.EnergyGoalKWh)
	}
	if updated.FullName != "Alice" {
		t.Fatalf("expected untouched fields to survive, got %q", updated.FullName)
	}

	negative := -1.0
	if _, err := s.UpdateUser(ctx, user.ID, domain.UserUpdate{EnergyGoalKWh: &negative}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative goal, got %v", err)
	}
}

func TestDeleteUserSoftDeletes(t *testing.T) {
	repo := newMemUserRepo()
	s := NewUserService(repo, nil, testConfig())
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{Email: "a@b.c", Username: "alice"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetUser(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteUser(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListUsersClampsLimit(t *testing.T) {
	repo := newMemUserRepo()
	s := NewUserService(repo, nil, testConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.CreateUser(ctx, CreateUserInput{
			Email:    string(rune('a'+i)) + "@b.c",
			Username: string(rune('a' + i)),
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	users, err := s.ListUsers(ctx, 0, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}

	// Oversized limit falls back to the configured maximum, not an error.
	if _, err := s.ListUsers(ctx, 0, 10_000); err != nil {
		t.Fatalf("list with oversized limit failed: %v", err)
	}
}
