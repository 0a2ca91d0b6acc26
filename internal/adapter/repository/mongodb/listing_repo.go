package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

const listingCollectionName = "listings"

type ListingRepository struct {
	db *mongo.Database
}

func NewListingRepository(client *mongo.Client, dbName string) *ListingRepository {
	return &ListingRepository{db: client.Database(dbName)}
}

func (r *ListingRepository) collection() *mongo.Collection {
	return r.db.Collection(listingCollectionName)
}

// listingDocument is the persisted shape of a listing. Field names mirror
// the public JSON so stored documents stay readable in the shell.
type listingDocument struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Title                 string             `bson:"title"`
	Location              string             `bson:"location"`
	Type                  string             `bson:"type"`
	Status                string             `bson:"status"`
	Price                 string             `bson:"price"`
	PriceNum              float64            `bson:"priceNum"`
	PlotSize              string             `bson:"plotSize"`
	TitleType             string             `bson:"titleType,omitempty"`
	Amenities             []string           `bson:"amenities"`
	VerificationChecklist []string           `bson:"verificationChecklist"`
	DocumentsAvailable    []string           `bson:"documentsAvailable"`
	MapLink               string             `bson:"mapLink,omitempty"`
	Description           string             `bson:"description,omitempty"`
	Whatsapp              string             `bson:"whatsapp"`
	Images                []string           `bson:"images"`
	MediaIDs              []string           `bson:"mediaIds"`
	CreatedAt             primitive.DateTime `bson:"createdAt"`
	UpdatedAt             primitive.DateTime `bson:"updatedAt"`
}

func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		Title:                 l.Title,
		Location:              l.Location,
		Type:                  string(l.Type),
		Status:                string(l.Status),
		Price:                 l.Price,
		PriceNum:              l.PriceNum,
		PlotSize:              l.PlotSize,
		TitleType:             l.TitleType,
		Amenities:             emptyIfNil(l.Amenities),
		VerificationChecklist: emptyIfNil(l.VerificationChecklist),
		DocumentsAvailable:    emptyIfNil(l.DocumentsAvailable),
		MapLink:               l.MapLink,
		Description:           l.Description,
		Whatsapp:              l.Whatsapp,
		Images:                emptyIfNil(l.Images),
		MediaIDs:              emptyIfNil(l.MediaIDs),
		CreatedAt:             primitive.NewDateTimeFromTime(l.CreatedAt),
		UpdatedAt:             primitive.NewDateTimeFromTime(l.UpdatedAt),
	}
	if l.ID != "" {
		objID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toListingEntity(doc *listingDocument) *domain.Listing {
	return &domain.Listing{
		ID:                    doc.ID.Hex(),
		Title:                 doc.Title,
		Location:              doc.Location,
		Type:                  domain.ListingType(doc.Type),
		Status:                domain.ListingStatus(doc.Status),
		Price:                 doc.Price,
		PriceNum:              doc.PriceNum,
		PlotSize:              doc.PlotSize,
		TitleType:             doc.TitleType,
		Amenities:             emptyIfNil(doc.Amenities),
		VerificationChecklist: emptyIfNil(doc.VerificationChecklist),
		DocumentsAvailable:    emptyIfNil(doc.DocumentsAvailable),
		MapLink:               doc.MapLink,
		Description:           doc.Description,
		Whatsapp:              doc.Whatsapp,
		Images:                emptyIfNil(doc.Images),
		MediaIDs:              emptyIfNil(doc.MediaIDs),
		CreatedAt:             doc.CreatedAt.Time(),
		UpdatedAt:             doc.UpdatedAt.Time(),
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) (string, error) {
	doc, err := toListingDocument(listing)
	if err != nil {
		return "", &domain.StoreError{Err: err}
	}

	res, err := r.collection().InsertOne(ctx, doc)
	if err != nil {
		return "", wrapStoreError(err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", &domain.StoreError{Err: fmt.Errorf("unexpected inserted id type %T", res.InsertedID)}
	}
	return insertedID.Hex(), nil
}

func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	doc, err := toListingDocument(listing)
	if err != nil {
		return &domain.StoreError{Err: err}
	}
	if doc.ID.IsZero() {
		return &domain.StoreError{Err: errors.New("listing ID is required for update")}
	}

	update := bson.M{"$set": bson.M{
		"title":                 doc.Title,
		"location":              doc.Location,
		"type":                  doc.Type,
		"status":                doc.Status,
		"price":                 doc.Price,
		"priceNum":              doc.PriceNum,
		"plotSize":              doc.PlotSize,
		"titleType":             doc.TitleType,
		"amenities":             doc.Amenities,
		"verificationChecklist": doc.VerificationChecklist,
		"documentsAvailable":    doc.DocumentsAvailable,
		"mapLink":               doc.MapLink,
		"description":           doc.Description,
		"whatsapp":              doc.Whatsapp,
		"images":                doc.Images,
		"mediaIds":              doc.MediaIDs,
		"updatedAt":             doc.UpdatedAt,
	}}

	res, err := r.collection().UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		return wrapStoreError(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}

	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return wrapStoreError(err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}

	var doc listingDocument
	err = r.collection().FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, wrapStoreError(err)
	}
	return toListingEntity(&doc), nil
}

// List returns listings newest first. Location is matched as a
// case-insensitive substring; status and type are exact.
func (r *ListingRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Listing, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.Location != "" {
		query["location"] = bson.M{"$regex": primitive.Regex{
			Pattern: regexp.QuoteMeta(filter.Location),
			Options: "i",
		}}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection().Find(ctx, query, findOptions)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapStoreError(err)
	}

	listings := make([]*domain.Listing, len(docs))
	for i := range docs {
		listings[i] = toListingEntity(&docs[i])
	}
	return listings, nil
}

func wrapStoreError(err error) error {
	return &domain.StoreError{
		Duplicate: mongo.IsDuplicateKeyError(err),
		Err:       err,
	}
}
