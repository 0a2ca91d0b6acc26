package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

// listingJSONSchema is the collection-level validator: required fields,
// closed enums, non-negative price and the hard image cap are enforced by
// the store itself, independent of application-level validation.
var listingJSONSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"title", "location", "type", "status", "priceNum", "whatsapp"},
	"properties": bson.M{
		"title": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 200,
		},
		"location": bson.M{
			"bsonType":  "string",
			"minLength": 1,
		},
		"type": bson.M{
			"enum": bson.A{
				string(domain.TypeResidentialPlot),
				string(domain.TypeCommercialLand),
				string(domain.TypeRanch),
				string(domain.TypePlot),
				string(domain.TypeSubdivisionReady),
				string(domain.TypeTitleDeedReady),
			},
		},
		"status": bson.M{
			"enum": bson.A{
				string(domain.StatusAvailable),
				string(domain.StatusSold),
				string(domain.StatusReserved),
			},
		},
		"priceNum": bson.M{
			"bsonType": bson.A{"double", "int", "long", "decimal"},
			"minimum":  0,
		},
		"whatsapp": bson.M{
			"bsonType": "string",
			"pattern":  "^[0-9]{10,15}$",
		},
		"images": bson.M{
			"bsonType": "array",
			"maxItems": domain.MaxImagesPerListing,
			"items":    bson.M{"bsonType": "string"},
		},
		"mediaIds": bson.M{
			"bsonType": "array",
			"maxItems": domain.MaxImagesPerListing,
			"items":    bson.M{"bsonType": "string"},
		},
	},
}

// EnsureSchema applies the JSON schema validator to the listings
// collection, creating it when absent.
func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	validator := bson.M{"$jsonSchema": listingJSONSchema}

	names, err := r.db.ListCollectionNames(ctx, bson.M{"name": listingCollectionName})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(validator)
		if err := r.db.CreateCollection(ctx, listingCollectionName, opts); err != nil {
			return fmt.Errorf("failed to create listings collection: %w", err)
		}
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: listingCollectionName},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
	}
	if err := r.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("failed to update listings collection validator: %w", err)
	}
	return nil
}

// EnsureIndexes creates the secondary indexes the list filters rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.collection().Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}
