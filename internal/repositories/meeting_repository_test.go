package repositories_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDB connects to MONGO_URI and returns a throwaway database.
func mongoDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("sgh_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func pendingMeeting(start time.Time) *models.Meeting {
	return &models.Meeting{
		SenderID:   1,
		ReceiverID: 2,
		Slot:       models.Slot{Day: start.Weekday().String(), Date: start.Format("2006-01-02"), From: "14:00", To: "15:00", Timezone: "UTC"},
		StartAt:    start,
		EndAt:      start.Add(time.Hour),
		Status:     models.MeetingPending,
	}
}

func TestMongoMeetingRespondIsSingleFlight(t *testing.T) {
	db := mongoDB(t)
	repo := repositories.NewMongoMeetingRepository(db)
	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}

	m := pendingMeeting(time.Now().UTC().Add(48 * time.Hour).Truncate(time.Millisecond))
	if err := repo.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.RespondToPending(ctx, m.ID.Hex(), 1, models.MeetingResponse{Status: models.MeetingAccepted, RespondedAt: time.Now()}); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("sender respond err = %v, want ErrNotFound", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, status := range []models.MeetingStatus{models.MeetingAccepted, models.MeetingRejected} {
		wg.Add(1)
		go func(status models.MeetingStatus) {
			defer wg.Done()
			_, err := repo.RespondToPending(ctx, m.ID.Hex(), 2, models.MeetingResponse{Status: status, RespondedAt: time.Now()})
			results <- err
		}(status)
	}
	wg.Wait()
	close(results)

	var ok, lost int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repositories.ErrNotFound):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || lost != 1 {
		t.Fatalf("ok=%d lost=%d, want 1 and 1", ok, lost)
	}
}

func TestMongoMeetingReminderClaimAndHide(t *testing.T) {
	db := mongoDB(t)
	repo := repositories.NewMongoMeetingRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	m := pendingMeeting(now.Add(10 * time.Minute))
	if err := repo.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	reminderAt := m.StartAt.Add(-30 * time.Minute)
	if _, err := repo.RespondToPending(ctx, m.ID.Hex(), 2, models.MeetingResponse{
		Status: models.MeetingAccepted, RespondedAt: now, MeetingLink: "https://meet.example/x", ReminderAt: &reminderAt,
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	due, err := repo.GetDueReminders(ctx, now, 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("due = %d (%v), want 1", len(due), err)
	}
	first, err := repo.ClaimReminder(ctx, m.ID, now)
	if err != nil || !first {
		t.Fatalf("first claim = %v (%v), want true", first, err)
	}
	second, err := repo.ClaimReminder(ctx, m.ID, now)
	if err != nil || second {
		t.Fatalf("second claim = %v (%v), want false", second, err)
	}

	if err := repo.HideForUser(ctx, m.ID.Hex(), 1); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := repo.HideForUser(ctx, m.ID.Hex(), 1); err != nil {
		t.Fatalf("hide twice: %v", err)
	}
	if err := repo.HideForUser(ctx, m.ID.Hex(), 99); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("hide by stranger err = %v, want ErrNotFound", err)
	}
	senderView, _ := repo.GetMeetingsForUser(ctx, 1)
	receiverView, _ := repo.GetMeetingsForUser(ctx, 2)
	if len(senderView) != 0 || len(receiverView) != 1 {
		t.Fatalf("sender sees %d, receiver sees %d; want 0 and 1", len(senderView), len(receiverView))
	}
}
