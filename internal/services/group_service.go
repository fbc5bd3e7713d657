package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"gorm.io/gorm"
)

const (
	EventGroupMemberJoined = "group_member_joined"
	EventGroupMemberLeft   = "group_member_left"

	browseLimit = 50
)

// GroupChannels is the part of the realtime hub that tracks group channel
// subscriptions.
type GroupChannels interface {
	Emit(channel, event string, payload any) error
	DropMember(groupID string, userID uint)
}

// GroupService runs group membership: owners approve or reject join requests
// from classmates at the same university.
type GroupService struct {
	groups   repositories.GroupRepository
	users    repositories.UserRepository
	notifier *Notifier
	channels GroupChannels
	clock    Clock
}

func NewGroupService(groups repositories.GroupRepository, users repositories.UserRepository, notifier *Notifier, channels GroupChannels, clock Clock) *GroupService {
	if clock == nil {
		clock = SystemClock
	}
	return &GroupService{groups: groups, users: users, notifier: notifier, channels: channels, clock: clock}
}

// Create starts a group owned by ownerID in the owner's university.
func (s *GroupService) Create(ctx context.Context, ownerID uint, req models.CreateGroupRequest) (*models.Group, error) {
	owner, err := s.lookupUser(ownerID)
	if err != nil {
		return nil, err
	}
	title, course := strings.TrimSpace(req.Title), strings.TrimSpace(req.Course)
	if title == "" || course == "" {
		return nil, fmt.Errorf("%w: title and course are required", ErrInvalidInput)
	}

	group := &models.Group{
		Title:        title,
		Course:       course,
		Description:  strings.TrimSpace(req.Description),
		University:   owner.University,
		Department:   owner.Department,
		OwnerID:      ownerID,
		Members:      []uint{ownerID},
		JoinRequests: []models.JoinRequest{},
		CreatedAt:    s.clock(),
	}
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// Get returns a group visible to userID, i.e. one at the user's university.
func (s *GroupService) Get(ctx context.Context, groupID string, userID uint) (*models.Group, error) {
	user, err := s.lookupUser(userID)
	if err != nil {
		return nil, err
	}
	return s.visibleGroup(ctx, groupID, user)
}

// Browse lists groups at userID's university matching query.
func (s *GroupService) Browse(ctx context.Context, userID uint, query string) ([]models.Group, error) {
	user, err := s.lookupUser(userID)
	if err != nil {
		return nil, err
	}
	return s.groups.Browse(ctx, user.University, strings.TrimSpace(query), browseLimit)
}

func (s *GroupService) Mine(ctx context.Context, userID uint) ([]models.Group, error) {
	return s.groups.GetGroupsForMember(ctx, userID)
}

// RequestJoin files a pending request and notifies the owner. Members and
// users already waiting get ErrConflict.
func (s *GroupService) RequestJoin(ctx context.Context, groupID string, userID uint) error {
	user, err := s.lookupUser(userID)
	if err != nil {
		return err
	}
	group, err := s.visibleGroup(ctx, groupID, user)
	if err != nil {
		return err
	}
	if group.IsMember(userID) {
		return fmt.Errorf("%w: already a member", ErrConflict)
	}

	req := models.JoinRequest{UserID: userID, Status: models.JoinPending, RequestedAt: s.clock()}
	ok, err := s.groups.AddJoinRequest(ctx, groupID, req)
	if err != nil {
		return fmt.Errorf("add join request: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: join request already pending", ErrConflict)
	}

	payload := map[string]any{
		"group_id":    groupID,
		"group_title": group.Title,
		"user_id":     userID,
		"user_name":   user.FullName,
	}
	title := fmt.Sprintf("%s asked to join %s", user.FullName, group.Title)
	if _, err := s.notifier.Notify(ctx, group.OwnerID, models.NotificationJoinRequest, title, payload); err != nil {
		log.Printf("[groups] join request for %s: %v", groupID, err)
	}
	return nil
}

// PendingRequests lists who is waiting to join. Owner only.
func (s *GroupService) PendingRequests(ctx context.Context, groupID string, ownerID uint) ([]models.PendingJoin, error) {
	group, err := s.ownedGroup(ctx, groupID, ownerID)
	if err != nil {
		return nil, err
	}
	out := []models.PendingJoin{}
	for _, r := range group.JoinRequests {
		if r.Status != models.JoinPending {
			continue
		}
		card := models.UserCompact{ID: r.UserID}
		if u, err := s.users.GetUserByID(r.UserID); err == nil {
			card = u.ToCompact()
		}
		out = append(out, models.PendingJoin{User: card, RequestedAt: r.RequestedAt})
	}
	return out, nil
}

// Resolve approves or rejects userID's pending request and tells them.
func (s *GroupService) Resolve(ctx context.Context, groupID string, ownerID, userID uint, approve bool) error {
	group, err := s.ownedGroup(ctx, groupID, ownerID)
	if err != nil {
		return err
	}

	status, kind, verb := models.JoinRejected, models.NotificationJoinRejected, "declined"
	if approve {
		status, kind, verb = models.JoinApproved, models.NotificationJoinApproved, "approved"
	}
	ok, err := s.groups.ResolveJoinRequest(ctx, groupID, ownerID, userID, status, s.clock())
	if err != nil {
		return fmt.Errorf("resolve join request: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no pending request from user %d", ErrConflict, userID)
	}

	payload := map[string]any{"group_id": groupID, "group_title": group.Title, "status": status}
	title := fmt.Sprintf("Your request to join %s was %s", group.Title, verb)
	if _, err := s.notifier.Notify(ctx, userID, kind, title, payload); err != nil {
		log.Printf("[groups] resolve request for %s: %v", groupID, err)
	}
	if approve {
		s.emitGroup(groupID, EventGroupMemberJoined, map[string]any{"group_id": groupID, "user_id": userID})
	}
	return nil
}

// Leave removes userID from the group and its realtime channel. The owner
// cannot leave.
func (s *GroupService) Leave(ctx context.Context, groupID string, userID uint) error {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if group.OwnerID == userID {
		return fmt.Errorf("%w: the owner cannot leave the group", ErrInvalidInput)
	}
	ok, err := s.groups.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	if s.channels != nil {
		s.channels.DropMember(groupID, userID)
	}
	s.emitGroup(groupID, EventGroupMemberLeft, map[string]any{"group_id": groupID, "user_id": userID})
	return nil
}

func (s *GroupService) visibleGroup(ctx context.Context, groupID string, user *models.User) (*models.Group, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if group.University != user.University {
		return nil, ErrNotFound
	}
	return group, nil
}

func (s *GroupService) ownedGroup(ctx context.Context, groupID string, ownerID uint) (*models.Group, error) {
	user, err := s.lookupUser(ownerID)
	if err != nil {
		return nil, err
	}
	group, err := s.visibleGroup(ctx, groupID, user)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: only the group owner can do that", ErrForbidden)
	}
	return group, nil
}

func (s *GroupService) emitGroup(groupID, event string, payload any) {
	if s.channels == nil {
		return
	}
	if err := s.channels.Emit(GroupChannel(groupID), event, payload); err != nil {
		log.Printf("[groups] emit %s to %s: %v", event, groupID, err)
	}
}

func (s *GroupService) lookupUser(id uint) (*models.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}
