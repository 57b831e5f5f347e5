package loginstore_test

import (
	"net/http/httptest"
	"testing"
	"time"

	loginstore "github.com/dalemusser/assesshub/internal/app/store/logins"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	rec := models.LoginRecord{
		UserID:   userID,
		IP:       "192.168.1.1",
		Provider: "internal",
	}

	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var found models.LoginRecord
	err := db.Collection("login_records").FindOne(ctx, bson.M{"user_id": userID}).Decode(&found)
	if err != nil {
		t.Fatalf("failed to find login record: %v", err)
	}

	if found.UserID != userID {
		t.Errorf("UserID: got %s, want %s", found.UserID.Hex(), userID.Hex())
	}
	if found.IP != "192.168.1.1" {
		t.Errorf("IP: got %q, want %q", found.IP, "192.168.1.1")
	}
	if found.Provider != "internal" {
		t.Errorf("Provider: got %q, want %q", found.Provider, "internal")
	}
	if found.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_WithExplicitTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	customTime := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	rec := models.LoginRecord{
		UserID:    userID,
		CreatedAt: customTime,
		IP:        "10.0.0.1",
		Provider:  "google",
	}

	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var found models.LoginRecord
	err := db.Collection("login_records").FindOne(ctx, bson.M{"user_id": userID}).Decode(&found)
	if err != nil {
		t.Fatalf("failed to find login record: %v", err)
	}

	if !found.CreatedAt.Equal(customTime) {
		t.Errorf("CreatedAt: got %v, want %v", found.CreatedAt, customTime)
	}
}

func TestStore_CreateFrom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if err := store.CreateFrom(ctx, req, userID, "internal"); err != nil {
		t.Fatalf("CreateFrom failed: %v", err)
	}

	var found models.LoginRecord
	err := db.Collection("login_records").FindOne(ctx, bson.M{"user_id": userID}).Decode(&found)
	if err != nil {
		t.Fatalf("failed to find login record: %v", err)
	}

	if found.IP != "203.0.113.7" {
		t.Errorf("IP: got %q, want %q (first X-Forwarded-For entry)", found.IP, "203.0.113.7")
	}
	if found.Provider != "internal" {
		t.Errorf("Provider: got %q, want %q", found.Provider, "internal")
	}
}

func TestStore_Create_MultipleRecordsSameUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		rec := models.LoginRecord{
			UserID:   userID,
			IP:       "192.168.1.1",
			Provider: "internal",
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	count, err := db.Collection("login_records").CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 login records, got %d", count)
	}
}
