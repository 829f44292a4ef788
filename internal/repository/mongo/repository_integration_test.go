package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testDatabaseName = "fittrack_test"

// RepositorySuite runs the repositories against a single-node replica set in docker,
// since MarkMissed and CreateWithSession need transactions.
type RepositorySuite struct {
	suite.Suite

	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
	client     *mongo.Client
	db         *mongo.Database
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker backed repository tests in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	pool, err := dockertest.NewPool("")
	if err != nil {
		s.T().Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		s.T().Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute
	s.dockerPool = pool

	s.resource, err = pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	s.Require().NoError(err, "run mongo")

	uri := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", s.resource.GetPort("27017/tcp"))
	s.Require().NoError(pool.Retry(func() error { return initiateReplicaSet(uri) }), "initiate replica set")

	s.client, err = ConnectDB(uri, ConnectOptions{Attempts: 3, Delay: time.Second})
	s.Require().NoError(err)
	s.db = s.client.Database(testDatabaseName)
}

// initiateReplicaSet succeeds once the node accepts writes as primary.
func initiateReplicaSet(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	admin := client.Database("admin")
	err = admin.RunCommand(ctx, bson.D{{Key: "replSetInitiate", Value: bson.M{
		"_id":     "rs0",
		"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
	}}}).Err()
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "AlreadyInitialized") {
		return err
	}

	var hello struct {
		IsWritablePrimary bool `bson:"isWritablePrimary"`
	}
	if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return err
	}
	if !hello.IsWritablePrimary {
		return errors.New("replica set has no primary yet")
	}
	return nil
}

func (s *RepositorySuite) TearDownSuite() {
	if s.client != nil {
		_ = DisconnectDB(s.client)
	}
	if s.resource != nil {
		_ = s.dockerPool.Purge(s.resource)
	}
}

func (s *RepositorySuite) SetupTest() {
	s.Require().NoError(s.db.Drop(context.Background()))
	EnsureIndexes(context.Background(), s.db)
}

func (s *RepositorySuite) newSession(userID primitive.ObjectID, scheduled time.Time) *domain.WorkoutSession {
	workout := &domain.Workout{ID: primitive.NewObjectID(), Title: "Legs"}
	session := domain.NewScheduledSession(userID, workout, scheduled)
	_, err := NewMongoSessionRepository(s.db).Create(context.Background(), session)
	s.Require().NoError(err)
	return session
}

func (s *RepositorySuite) TestMarkMissed_OnlyTouchesScheduledSessionsOfTheUser() {
	ctx := context.Background()
	repo := NewMongoSessionRepository(s.db)
	user, other := primitive.NewObjectID(), primitive.NewObjectID()
	yesterday := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

	overdue := s.newSession(user, yesterday)
	done := s.newSession(user, yesterday)
	_, err := repo.Complete(ctx, user, done.ID, yesterday.Add(time.Hour))
	s.Require().NoError(err)
	foreign := s.newSession(other, yesterday)

	modified, err := repo.MarkMissed(ctx, user, []primitive.ObjectID{overdue.ID, done.ID, foreign.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), modified)

	got, err := repo.GetByID(ctx, overdue.ID)
	s.Require().NoError(err)
	s.Equal(domain.SessionMissed, got.Status)

	got, err = repo.GetByID(ctx, done.ID)
	s.Require().NoError(err)
	s.Equal(domain.SessionCompleted, got.Status)
	s.NotNil(got.CompletedDate)

	got, err = repo.GetByID(ctx, foreign.ID)
	s.Require().NoError(err)
	s.Equal(domain.SessionScheduled, got.Status)

	modified, err = repo.MarkMissed(ctx, user, []primitive.ObjectID{overdue.ID})
	s.Require().NoError(err)
	s.Zero(modified, "second run changes nothing")
}

func (s *RepositorySuite) TestComplete_ScheduledOnly() {
	ctx := context.Background()
	repo := NewMongoSessionRepository(s.db)
	user := primitive.NewObjectID()
	session := s.newSession(user, time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC))
	completedAt := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	_, err := repo.Complete(ctx, primitive.NewObjectID(), session.ID, completedAt)
	s.ErrorIs(err, repository.ErrNotFound, "another user's session does not match")

	got, err := repo.Complete(ctx, user, session.ID, completedAt)
	s.Require().NoError(err)
	s.Equal(domain.SessionCompleted, got.Status)
	s.Require().NotNil(got.CompletedDate)
	s.True(got.CompletedDate.Equal(completedAt))

	_, err = repo.Complete(ctx, user, session.ID, completedAt.Add(time.Hour))
	s.ErrorIs(err, repository.ErrNotFound, "a completed session is not scheduled anymore")

	missed := s.newSession(user, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	_, err = repo.MarkMissed(ctx, user, []primitive.ObjectID{missed.ID})
	s.Require().NoError(err)
	_, err = repo.Complete(ctx, user, missed.ID, completedAt)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestCreateWithSession() {
	ctx := context.Background()
	user := primitive.NewObjectID()
	workout := &domain.Workout{
		Title:      "Upper body",
		Duration:   "30 min",
		Difficulty: "Beginner",
		Exercises:  []domain.Exercise{{Name: "Push-ups", Sets: "3", Reps: "12"}},
		CreatorID:  user.Hex(),
	}
	session := domain.NewScheduledSession(user, workout, time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC))

	s.Require().NoError(NewMongoWorkoutRepository(s.db).CreateWithSession(ctx, workout, session))

	sessions, err := NewMongoSessionRepository(s.db).ListByUser(ctx, user)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(workout.ID, sessions[0].WorkoutID)
	s.Equal("Upper body", sessions[0].WorkoutTitle)
	s.Equal(domain.SessionScheduled, sessions[0].Status)
}

func (s *RepositorySuite) TestStepSamplesSince() {
	ctx := context.Background()
	repo := NewMongoStepRepository(s.db)
	user := primitive.NewObjectID()
	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	for _, sample := range []*domain.StepSample{
		{UserID: user, Steps: 300, RecordedAt: midnight.Add(9 * time.Hour)},
		{UserID: user, Steps: 1000, RecordedAt: midnight.Add(-time.Minute)},
		{UserID: user, Steps: 200, RecordedAt: midnight},
		{UserID: primitive.NewObjectID(), Steps: 999, RecordedAt: midnight.Add(time.Hour)},
	} {
		_, err := repo.Add(ctx, sample)
		s.Require().NoError(err)
	}

	total, err := repo.SumSince(ctx, user, midnight)
	s.Require().NoError(err)
	s.Equal(500, total)

	samples, err := repo.ListSince(ctx, user, midnight)
	s.Require().NoError(err)
	s.Require().Len(samples, 2)
	s.Equal(200, samples[0].Steps)
	s.Equal(300, samples[1].Steps)

	total, err = repo.SumSince(ctx, primitive.NewObjectID(), midnight)
	s.Require().NoError(err)
	s.Zero(total)
}
