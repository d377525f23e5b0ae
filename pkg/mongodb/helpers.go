package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Now returns the current time in UTC, truncated to the millisecond precision MongoDB stores
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// UniqueIndex builds a unique compound index over keys, in order
func UniqueIndex(name string, keys ...string) mongo.IndexModel {
	doc := bson.D{}
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: 1})
	}
	return mongo.IndexModel{
		Keys:    doc,
		Options: indexOptions(name, true),
	}
}

// Index builds a non-unique compound index over keys; a leading "-" sorts descending
func Index(name string, keys ...string) mongo.IndexModel {
	doc := bson.D{}
	for _, k := range keys {
		if len(k) > 1 && k[0] == '-' {
			doc = append(doc, bson.E{Key: k[1:], Value: -1})
			continue
		}
		doc = append(doc, bson.E{Key: k, Value: 1})
	}
	return mongo.IndexModel{
		Keys:    doc,
		Options: indexOptions(name, false),
	}
}

func indexOptions(name string, unique bool) *options.IndexOptions {
	opts := options.Index().SetName(name)
	if unique {
		opts.SetUnique(true)
	}
	return opts
}
