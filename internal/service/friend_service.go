package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/events"
	"fittrack/app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxDiscoverEmails bounds one contacts lookup.
	MaxDiscoverEmails = 30
	searchLimit       = 20
)

// --- Error Definitions ---
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrSelfFriendRequest     = errors.New("cannot send a friend request to yourself")
	ErrDuplicateRequest      = errors.New("a pending friend request already exists")
	ErrAlreadyFriends        = errors.New("already friends")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrRequestNotPending     = errors.New("friend request is no longer pending")
)

// UserSummary is the public face of another user.
type UserSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// IncomingRequest is a pending request with its sender's display name.
type IncomingRequest struct {
	domain.FriendRequest
	SenderName string `json:"senderName"`
}

type Friend struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	FriendSince time.Time          `json:"friendSince"`
}

type FriendService interface {
	SearchUsers(ctx context.Context, userID primitive.ObjectID, query string) ([]UserSummary, error)
	// DiscoverContacts matches contact emails against registered users; only the
	// first MaxDiscoverEmails distinct emails are considered.
	DiscoverContacts(ctx context.Context, userID primitive.ObjectID, emails []string) ([]UserSummary, error)
	SendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (*domain.FriendRequest, error)
	IncomingRequests(ctx context.Context, userID primitive.ObjectID) ([]IncomingRequest, error)
	AcceptRequest(ctx context.Context, userID, requestID primitive.ObjectID) error
	DeclineRequest(ctx context.Context, userID, requestID primitive.ObjectID) error
	ListFriends(ctx context.Context, userID primitive.ObjectID) ([]Friend, error)
}

type friendService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	publisher  events.Publisher
	now        func() time.Time
}

func NewFriendService(userRepo repository.UserRepository, friendRepo repository.FriendRepository, publisher events.Publisher) FriendService {
	return &friendService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		publisher:  publisher,
		now:        time.Now,
	}
}

func summarize(users []domain.User, exclude primitive.ObjectID) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		if users[i].ID == exclude {
			continue
		}
		out = append(out, UserSummary{ID: users[i].ID, Name: users[i].DisplayName()})
	}
	return out
}

func (s *friendService) SearchUsers(ctx context.Context, userID primitive.ObjectID, query string) ([]UserSummary, error) {
	query = strings.TrimSpace(query)
	if userID.IsZero() || query == "" {
		return []UserSummary{}, nil
	}
	// one extra so the caller still gets searchLimit results after dropping self
	users, err := s.userRepo.SearchByNamePrefix(ctx, query, searchLimit+1)
	if err != nil {
		return nil, storeErr("search users", err)
	}
	out := summarize(users, userID)
	if len(out) > searchLimit {
		out = out[:searchLimit]
	}
	return out, nil
}

func (s *friendService) DiscoverContacts(ctx context.Context, userID primitive.ObjectID, emails []string) ([]UserSummary, error) {
	if userID.IsZero() {
		return []UserSummary{}, nil
	}

	seen := make(map[string]struct{}, len(emails))
	batch := make([]string, 0, MaxDiscoverEmails)
	for _, e := range emails {
		e = normalizeEmail(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		batch = append(batch, e)
		if len(batch) == MaxDiscoverEmails {
			break
		}
	}
	if len(batch) == 0 {
		return []UserSummary{}, nil
	}

	users, err := s.userRepo.FindByEmails(ctx, batch)
	if err != nil {
		return nil, storeErr("find users by email", err)
	}
	return summarize(users, userID), nil
}

func (s *friendService) SendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (*domain.FriendRequest, error) {
	if senderID.IsZero() {
		return nil, ErrForbidden
	}
	if senderID == receiverID {
		return nil, ErrSelfFriendRequest
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get receiver", err)
	}

	friends, err := s.friendRepo.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeErr("check friendship", err)
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	if _, err := s.friendRepo.FindPendingBetween(ctx, senderID, receiverID); err == nil {
		return nil, ErrDuplicateRequest
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("find pending request", err)
	}

	now := s.now().UTC()
	req := &domain.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.FriendRequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := s.friendRepo.CreateRequest(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateRequest
		}
		return nil, storeErr("create friend request", err)
	}
	req.ID = id

	event := events.New(events.TypeFriendRequestSent, receiver.ID.Hex(), map[string]any{
		"requestId": id.Hex(),
		"senderId":  senderID.Hex(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("request_id", id.Hex()).Error("publish friend request event")
	}
	return req, nil
}

func (s *friendService) IncomingRequests(ctx context.Context, userID primitive.ObjectID) ([]IncomingRequest, error) {
	out := []IncomingRequest{}
	if userID.IsZero() {
		return out, nil
	}
	requests, err := s.friendRepo.ListIncomingPending(ctx, userID)
	if err != nil {
		return nil, storeErr("list incoming requests", err)
	}
	if len(requests) == 0 {
		return out, nil
	}

	senderIDs := make([]primitive.ObjectID, 0, len(requests))
	for _, r := range requests {
		senderIDs = append(senderIDs, r.SenderID)
	}
	names, err := s.namesByID(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	for _, r := range requests {
		out = append(out, IncomingRequest{FriendRequest: r, SenderName: displayNameOf(names, r.SenderID)})
	}
	return out, nil
}

// pendingForReceiver loads a request the user may answer.
func (s *friendService) pendingForReceiver(ctx context.Context, userID, requestID primitive.ObjectID) (*domain.FriendRequest, error) {
	req, err := s.friendRepo.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFriendRequestNotFound
		}
		return nil, storeErr("get friend request", err)
	}
	if req.ReceiverID != userID {
		return nil, ErrForbidden
	}
	if req.Status != domain.FriendRequestPending {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *friendService) AcceptRequest(ctx context.Context, userID, requestID primitive.ObjectID) error {
	req, err := s.pendingForReceiver(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if err := s.friendRepo.Accept(ctx, req, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRequestNotPending
		}
		return storeErr("accept friend request", err)
	}
	log.WithFields(log.Fields{"user_id": userID.Hex(), "request_id": requestID.Hex()}).Info("friend request accepted")
	return nil
}

func (s *friendService) DeclineRequest(ctx context.Context, userID, requestID primitive.ObjectID) error {
	if _, err := s.pendingForReceiver(ctx, userID, requestID); err != nil {
		return err
	}
	if err := s.friendRepo.Decline(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRequestNotPending
		}
		return storeErr("decline friend request", err)
	}
	return nil
}

func (s *friendService) ListFriends(ctx context.Context, userID primitive.ObjectID) ([]Friend, error) {
	out := []Friend{}
	if userID.IsZero() {
		return out, nil
	}
	friendships, err := s.friendRepo.ListFriendships(ctx, userID)
	if err != nil {
		return nil, storeErr("list friendships", err)
	}
	if len(friendships) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.FriendID)
	}
	names, err := s.namesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, f := range friendships {
		out = append(out, Friend{ID: f.FriendID, Name: displayNameOf(names, f.FriendID), FriendSince: f.FriendSince})
	}
	return out, nil
}

func (s *friendService) namesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.User, error) {
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("get users", err)
	}
	byID := make(map[primitive.ObjectID]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

// displayNameOf falls back to the unknown-name placeholder for deleted users.
func displayNameOf(users map[primitive.ObjectID]*domain.User, id primitive.ObjectID) string {
	return users[id].DisplayName()
}
