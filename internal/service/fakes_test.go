package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/events"
	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories mirroring the conditional semantics of the mongo implementations.

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
	err   error
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{users: map[primitive.ObjectID]*domain.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return primitive.NilObjectID, m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	cp := *user
	cp.ID = primitive.NewObjectID()
	m.users[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, update domain.ProfileUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Age != nil {
		u.Age = update.Age
	}
	if update.Weight != nil {
		u.Weight = update.Weight
	}
	if update.Height != nil {
		u.Height = update.Height
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SearchByNamePrefix(_ context.Context, prefix string, limit int64) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.User{}
	for _, u := range m.users {
		if strings.HasPrefix(u.Name, prefix) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) FindByEmails(_ context.Context, emails []string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	want := map[string]bool{}
	for _, e := range emails {
		want[e] = true
	}
	out := []domain.User{}
	for _, u := range m.users {
		if want[u.Email] {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenUntil = &until
	return nil
}

func (m *memUsers) ResetPassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenUntil = nil
	return nil
}

type memSessions struct {
	mu          sync.Mutex
	sessions    map[primitive.ObjectID]*domain.WorkoutSession
	listErr     error
	markErr     error
	completeErr error
	markCalls   int
	// beforeMark runs inside MarkMissed before the update, simulating a concurrent writer.
	beforeMark func()
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[primitive.ObjectID]*domain.WorkoutSession{}}
}

func (m *memSessions) put(s domain.WorkoutSession) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	m.sessions[s.ID] = &s
	return s.ID
}

func (m *memSessions) get(id primitive.ObjectID) domain.WorkoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

func (m *memSessions) Create(_ context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	if err := session.Validate(); err != nil {
		return primitive.NilObjectID, repository.ErrInvalid
	}
	return m.put(*session), nil
}

func (m *memSessions) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.WorkoutSession{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (m *memSessions) MarkMissed(_ context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if m.beforeMark != nil {
		m.beforeMark()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if m.markErr != nil {
		return 0, m.markErr
	}
	var n int64
	for _, id := range ids {
		s, ok := m.sessions[id]
		if ok && s.UserID == userID && s.Status == domain.SessionScheduled {
			s.Status = domain.SessionMissed
			n++
		}
	}
	return n, nil
}

func (m *memSessions) Complete(_ context.Context, userID, id primitive.ObjectID, completedAt time.Time) (*domain.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID || s.Status != domain.SessionScheduled {
		return nil, repository.ErrNotFound
	}
	at := completedAt.UTC()
	s.Status = domain.SessionCompleted
	s.CompletedDate = &at
	cp := *s
	return &cp, nil
}

type memWorkouts struct {
	mu       sync.Mutex
	workouts map[primitive.ObjectID]*domain.Workout
	sessions *memSessions
	err      error
}

func newMemWorkouts(sessions *memSessions, workouts ...*domain.Workout) *memWorkouts {
	m := &memWorkouts{workouts: map[primitive.ObjectID]*domain.Workout{}, sessions: sessions}
	for _, w := range workouts {
		if w.ID.IsZero() {
			w.ID = primitive.NewObjectID()
		}
		m.workouts[w.ID] = w
	}
	return m
}

func (m *memWorkouts) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	w, ok := m.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWorkouts) ListByCreators(_ context.Context, creatorIDs []string) ([]domain.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Workout{}
	for _, w := range m.workouts {
		for _, c := range creatorIDs {
			if w.CreatorID == c {
				out = append(out, *w)
			}
		}
	}
	return out, nil
}

func (m *memWorkouts) UpdateExercises(_ context.Context, id primitive.ObjectID, exercises []domain.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Exercises = exercises
	return nil
}

func (m *memWorkouts) SetVideo(_ context.Context, id primitive.ObjectID, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.VideoObjectKey = objectKey
	return nil
}

func (m *memWorkouts) CreateWithSession(_ context.Context, workout *domain.Workout, session *domain.WorkoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	workout.ID = primitive.NewObjectID()
	workout.CreatedAt = time.Now().UTC()
	cp := *workout
	m.workouts[cp.ID] = &cp

	session.WorkoutID = workout.ID
	session.WorkoutTitle = workout.Title
	session.ID = m.sessions.put(*session)
	return nil
}

type memFriends struct {
	mu          sync.Mutex
	requests    map[primitive.ObjectID]*domain.FriendRequest
	friendships []domain.Friendship
}

func newMemFriends() *memFriends {
	return &memFriends{requests: map[primitive.ObjectID]*domain.FriendRequest{}}
}

func (m *memFriends) CreateRequest(_ context.Context, req *domain.FriendRequest) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	cp.ID = primitive.NewObjectID()
	m.requests[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memFriends) GetRequest(_ context.Context, id primitive.ObjectID) (*domain.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memFriends) FindPendingBetween(_ context.Context, a, b primitive.ObjectID) (*domain.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		between := (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
		if between && r.Status == domain.FriendRequestPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memFriends) ListIncomingPending(_ context.Context, receiverID primitive.ObjectID) ([]domain.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.FriendRequest{}
	for _, r := range m.requests {
		if r.ReceiverID == receiverID && r.Status == domain.FriendRequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memFriends) Accept(_ context.Context, req *domain.FriendRequest, since time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[req.ID]
	if !ok || r.Status != domain.FriendRequestPending {
		return repository.ErrNotFound
	}
	r.Status = domain.FriendRequestAccepted
	m.friendships = append(m.friendships,
		domain.Friendship{ID: primitive.NewObjectID(), UserID: req.ReceiverID, FriendID: req.SenderID, FriendSince: since},
		domain.Friendship{ID: primitive.NewObjectID(), UserID: req.SenderID, FriendID: req.ReceiverID, FriendSince: since},
	)
	return nil
}

func (m *memFriends) Decline(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != domain.FriendRequestPending {
		return repository.ErrNotFound
	}
	r.Status = domain.FriendRequestDeclined
	return nil
}

func (m *memFriends) ListFriendships(_ context.Context, userID primitive.ObjectID) ([]domain.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Friendship{}
	for _, f := range m.friendships {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFriends) AreFriends(_ context.Context, a, b primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.friendships {
		if f.UserID == a && f.FriendID == b {
			return true, nil
		}
	}
	return false, nil
}

type memSteps struct {
	mu      sync.Mutex
	samples []domain.StepSample
	err     error
	// beforeList runs once, at the start of the next ListSince call.
	beforeList func()
}

func (m *memSteps) Add(_ context.Context, sample *domain.StepSample) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return primitive.NilObjectID, m.err
	}
	cp := *sample
	cp.ID = primitive.NewObjectID()
	m.samples = append(m.samples, cp)
	return cp.ID, nil
}

func (m *memSteps) SumSince(_ context.Context, userID primitive.ObjectID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	total := 0
	for _, s := range m.samples {
		if s.UserID == userID && !s.RecordedAt.Before(since) {
			total += s.Steps
		}
	}
	return total, nil
}

func (m *memSteps) ListSince(_ context.Context, userID primitive.ObjectID, since time.Time) ([]domain.StepSample, error) {
	m.mu.Lock()
	hook := m.beforeList
	m.beforeList = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.StepSample{}
	for _, s := range m.samples {
		if s.UserID == userID && !s.RecordedAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

type memTokens struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemTokens() *memTokens {
	return &memTokens{revoked: map[string]time.Time{}}
}

func (m *memTokens) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) ofType(t string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.test/put/" + objectKey, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.test/get/" + objectKey, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
