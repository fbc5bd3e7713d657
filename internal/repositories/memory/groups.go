package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Groups struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]*models.Group
}

var _ repositories.GroupRepository = (*Groups)(nil)

func NewGroups() *Groups {
	return &Groups{groups: make(map[primitive.ObjectID]*models.Group)}
}

func (r *Groups) CreateGroup(_ context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group.ID = primitive.NewObjectID()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.Members == nil {
		group.Members = []uint{group.OwnerID}
	}
	if group.JoinRequests == nil {
		group.JoinRequests = []models.JoinRequest{}
	}
	r.groups[group.ID] = cloneGroup(group)
	return nil
}

func (r *Groups) GetGroupByID(_ context.Context, id string) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.lookup(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r *Groups) Browse(_ context.Context, university, query string, limit int64) ([]models.Group, error) {
	query = strings.ToLower(query)
	return r.list(limit, func(g *models.Group) bool {
		if g.University != university {
			return false
		}
		return query == "" ||
			strings.Contains(strings.ToLower(g.Title), query) ||
			strings.Contains(strings.ToLower(g.Course), query)
	}), nil
}

func (r *Groups) GetGroupsForMember(_ context.Context, userID uint) ([]models.Group, error) {
	return r.list(0, func(g *models.Group) bool { return g.IsMember(userID) }), nil
}

func (r *Groups) AddJoinRequest(_ context.Context, id string, req models.JoinRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.lookup(id)
	if !ok || g.IsMember(req.UserID) || g.HasPendingRequest(req.UserID) {
		return false, nil
	}
	g.JoinRequests = append(g.JoinRequests, req)
	return true, nil
}

func (r *Groups) ResolveJoinRequest(_ context.Context, id string, ownerID, userID uint, status models.JoinStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.lookup(id)
	if !ok || g.OwnerID != ownerID {
		return false, nil
	}
	for i := range g.JoinRequests {
		req := &g.JoinRequests[i]
		if req.UserID != userID || req.Status != models.JoinPending {
			continue
		}
		req.Status = status
		resolvedAt := at
		req.ResolvedAt = &resolvedAt
		if status == models.JoinApproved && !g.IsMember(userID) {
			g.Members = append(g.Members, userID)
		}
		return true, nil
	}
	return false, nil
}

func (r *Groups) RemoveMember(_ context.Context, id string, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.lookup(id)
	if !ok || g.OwnerID == userID || !g.IsMember(userID) {
		return false, nil
	}
	members := g.Members[:0]
	for _, m := range g.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	g.Members = members
	return true, nil
}

func (r *Groups) IsMember(_ context.Context, id string, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.lookup(id)
	return ok && g.IsMember(userID), nil
}

func (r *Groups) lookup(id string) (*models.Group, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	g, ok := r.groups[oid]
	return g, ok
}

func (r *Groups) list(limit int64, keep func(*models.Group) bool) []models.Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Group{}
	for _, g := range r.groups {
		if keep(g) {
			out = append(out, *cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func cloneGroup(g *models.Group) *models.Group {
	c := *g
	c.Members = append([]uint{}, g.Members...)
	c.JoinRequests = make([]models.JoinRequest, len(g.JoinRequests))
	for i, req := range g.JoinRequests {
		c.JoinRequests[i] = req
		if req.ResolvedAt != nil {
			t := *req.ResolvedAt
			c.JoinRequests[i].ResolvedAt = &t
		}
	}
	return &c
}
