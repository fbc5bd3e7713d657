package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/repositories/memory"
)

// testGroupRepository runs the conditional-write contract against repo.
func testGroupRepository(t *testing.T, repo repositories.GroupRepository) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	g := &models.Group{Title: "Algorithms study", Course: "CS 3510", University: "kent.edu", OwnerID: 1, CreatedAt: now}
	if err := repo.CreateGroup(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	id := g.ID.Hex()
	if ok, _ := repo.IsMember(ctx, id, 1); !ok {
		t.Fatal("owner is not a member")
	}

	req := models.JoinRequest{UserID: 2, Status: models.JoinPending, RequestedAt: now}
	if ok, err := repo.AddJoinRequest(ctx, id, req); err != nil || !ok {
		t.Fatalf("first join request = %v, %v", ok, err)
	}
	if ok, _ := repo.AddJoinRequest(ctx, id, req); ok {
		t.Error("duplicate pending request accepted")
	}
	if ok, _ := repo.AddJoinRequest(ctx, id, models.JoinRequest{UserID: 1, Status: models.JoinPending, RequestedAt: now}); ok {
		t.Error("member allowed to request joining")
	}

	if ok, _ := repo.ResolveJoinRequest(ctx, id, 2, 2, models.JoinApproved, now); ok {
		t.Error("non-owner resolved a request")
	}
	if ok, err := repo.ResolveJoinRequest(ctx, id, 1, 2, models.JoinApproved, now); err != nil || !ok {
		t.Fatalf("approve = %v, %v", ok, err)
	}
	if ok, _ := repo.ResolveJoinRequest(ctx, id, 1, 2, models.JoinRejected, now); ok {
		t.Error("request resolved twice")
	}
	if ok, _ := repo.IsMember(ctx, id, 2); !ok {
		t.Fatal("approved user is not a member")
	}

	mine, err := repo.GetGroupsForMember(ctx, 2)
	if err != nil || len(mine) != 1 || mine[0].ID != g.ID {
		t.Fatalf("groups for member = %v, %v", mine, err)
	}

	found, err := repo.Browse(ctx, "kent.edu", "cs 35", 10)
	if err != nil || len(found) != 1 {
		t.Fatalf("browse by course = %v, %v", found, err)
	}
	if found, _ := repo.Browse(ctx, "cam.ac.uk", "", 10); len(found) != 0 {
		t.Errorf("browse leaked across universities: %v", found)
	}
	if found, _ := repo.Browse(ctx, "kent.edu", "a.+", 10); len(found) != 0 {
		t.Errorf("query treated as a pattern: %v", found)
	}

	if ok, _ := repo.RemoveMember(ctx, id, 1); ok {
		t.Error("owner removed from own group")
	}
	if ok, err := repo.RemoveMember(ctx, id, 2); err != nil || !ok {
		t.Fatalf("leave = %v, %v", ok, err)
	}
	if ok, _ := repo.IsMember(ctx, id, 2); ok {
		t.Error("user still a member after leaving")
	}

	// Rejoining after leaving starts a fresh request.
	if ok, _ := repo.AddJoinRequest(ctx, id, req); !ok {
		t.Error("former member cannot request again")
	}
	if ok, _ := repo.ResolveJoinRequest(ctx, id, 1, 2, models.JoinRejected, now); !ok {
		t.Error("reject failed")
	}
	if ok, _ := repo.IsMember(ctx, id, 2); ok {
		t.Error("rejected user became a member")
	}

	if ok, _ := repo.IsMember(ctx, "not-an-id", 1); ok {
		t.Error("malformed id reported membership")
	}
}

func TestMemoryGroupRepository(t *testing.T) {
	testGroupRepository(t, memory.NewGroups())
}

func TestMongoGroupRepository(t *testing.T) {
	repo := repositories.NewMongoGroupRepository(mongoDB(t))
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	testGroupRepository(t, repo)
}
