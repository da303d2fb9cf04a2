// Package mongodb stores users, ads and revoked tokens in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Repository provides MongoDB database operations
type Repository struct {
	client *mongo.Client
	users  *mongo.Collection
	ads    *mongo.Collection
	tokens *mongo.Collection
	now    func() time.Time
}

var _ repository.Store = (*Repository)(nil)

// Open connects to uri, verifies the connection and ensures indexes exist
func Open(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	r := newRepository(db.Collection("users"), db.Collection("ads"), db.Collection("revoked_tokens"))
	r.client = client
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

func newRepository(users, ads, tokens *mongo.Collection) *Repository {
	return &Repository{
		users:  users,
		ads:    ads,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	if _, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("username"), unique("email"), unique("apiKey"),
	}); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if _, err := r.ads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create ad indexes: %w", err)
	}
	// expired entries are removed by the server as well as by the housekeeper
	if _, err := r.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		return fmt.Errorf("failed to create token indexes: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *Repository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// CreateUser creates a new user document
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *Repository) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	user := &models.User{}
	if err := r.users.FindOne(ctx, filter).Decode(user); err != nil {
		return nil, fmt.Errorf("failed to find user: %w", mapError(err))
	}
	return user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *Repository) UpdateUsername(ctx context.Context, id, username string) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{"$set": bson.M{"username": username}})
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{"$set": bson.M{"password": hash}})
}

func (r *Repository) UpdateAvatar(ctx context.Context, id, avatar string) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{"$set": bson.M{"avatar": avatar}})
}

func (r *Repository) MarkVerified(ctx context.Context, id string) (*models.User, error) {
	return r.updateUser(ctx, id, bson.M{
		"$set":   bson.M{"verified": true},
		"$unset": bson.M{"otp": "", "otpExpiresAt": "", "otpAttempts": ""},
	})
}

func (r *Repository) updateUser(ctx context.Context, id string, update bson.M) (*models.User, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = r.now()

	user := &models.User{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return user, nil
}

func (r *Repository) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	res, err := r.users.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"otp":          otp,
			"otpExpiresAt": expiresAt,
			"updatedAt":    r.now(),
		},
		"$unset": bson.M{"otpAttempts": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecordOTPFailure increments the miss counter atomically and clears the
// pending code once it reaches maxAttempts
func (r *Repository) RecordOTPFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	var doc struct {
		OTP      string `bson:"otp"`
		Attempts int    `bson:"otpAttempts"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"otp": 1, "otpAttempts": 1})
	update := bson.M{
		"$inc": bson.M{"otpAttempts": 1},
		"$set": bson.M{"updatedAt": r.now()},
	}
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		return false, fmt.Errorf("failed to record otp failure: %w", mapError(err))
	}
	if doc.OTP != "" && doc.Attempts < maxAttempts {
		return false, nil
	}

	_, err := r.users.UpdateByID(ctx, id, bson.M{"$unset": bson.M{"otp": "", "otpExpiresAt": "", "otpAttempts": ""}})
	if err != nil {
		return false, fmt.Errorf("failed to clear otp: %w", err)
	}
	return true, nil
}

func (r *Repository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.users.UpdateMany(ctx,
		bson.M{"otpExpiresAt": bson.M{"$lt": now}},
		bson.M{"$unset": bson.M{"otp": "", "otpExpiresAt": "", "otpAttempts": ""}})
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired otps: %w", err)
	}
	return res.ModifiedCount, nil
}

// CreateAd creates a new listing document
func (r *Repository) CreateAd(ctx context.Context, ad *models.Ad) error {
	now := r.now()
	ad.CreatedAt, ad.UpdatedAt = now, now
	if _, err := r.ads.InsertOne(ctx, ad); err != nil {
		return fmt.Errorf("failed to create ad: %w", mapError(err))
	}
	return nil
}

func (r *Repository) FindAdByID(ctx context.Context, id string) (*models.Ad, error) {
	ad := &models.Ad{}
	if err := r.ads.FindOne(ctx, bson.M{"_id": id}).Decode(ad); err != nil {
		return nil, fmt.Errorf("failed to find ad: %w", mapError(err))
	}
	return ad, nil
}

func (r *Repository) ListAds(ctx context.Context) ([]models.Ad, error) {
	return r.listAds(ctx, bson.M{})
}

func (r *Repository) ListAdsByUser(ctx context.Context, userID string) ([]models.Ad, error) {
	return r.listAds(ctx, bson.M{"user": userID})
}

func (r *Repository) listAds(ctx context.Context, filter bson.M) ([]models.Ad, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.ads.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	ads := []models.Ad{}
	if err := cur.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("failed to decode ads: %w", err)
	}
	return ads, nil
}

func (r *Repository) UpdateAd(ctx context.Context, id string, patch models.AdPatch) (*models.Ad, error) {
	if patch.Empty() {
		return r.FindAdByID(ctx, id)
	}

	set := bson.M{"updatedAt": r.now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Location != nil {
		set["location"] = patch.Location
	}
	if patch.Category != nil {
		set["category"] = patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}

	ad := &models.Ad{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.ads.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(ad); err != nil {
		return nil, fmt.Errorf("failed to update ad: %w", mapError(err))
	}
	return ad, nil
}

func (r *Repository) DeleteAd(ctx context.Context, id string) error {
	res, err := r.ads.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.tokens.UpdateByID(ctx, jti,
		bson.M{"$setOnInsert": bson.M{"userId": userID, "expiresAt": expiresAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *Repository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.tokens.CountDocuments(ctx, bson.M{"_id": jti}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) PruneRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.tokens.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func mapError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}
