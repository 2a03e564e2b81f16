package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// SearchableRecord is the search engine's unified read view of memory and
// knowledge documents. CreatedAt is normalized to unix milliseconds
// regardless of how the timestamp was stored.
type SearchableRecord struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId,omitempty"`
	RoomID    string    `json:"roomId,omitempty"`
	Content   Content   `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Unique    bool      `json:"unique,omitempty"`
	IsMain    bool      `json:"isMain,omitempty"`
	IsChunk   bool      `json:"isChunk,omitempty"`
	CreatedAt int64     `json:"createdAt"`
}

// DecodeRecord normalizes a raw document into a SearchableRecord.
// String-encoded structured content is deserialized and string timestamps
// are parsed; a document that cannot be normalized yields an error so the
// caller can drop that single candidate and continue.
func DecodeRecord(raw bson.Raw) (SearchableRecord, error) {
	var rec SearchableRecord

	id, err := decodeID(raw.Lookup("_id"))
	if err != nil {
		return rec, err
	}
	rec.ID = id

	if s, ok := raw.Lookup("agentId").StringValueOK(); ok {
		rec.AgentID = s
	}
	if s, ok := raw.Lookup("roomId").StringValueOK(); ok {
		rec.RoomID = s
	}
	if b, ok := raw.Lookup("unique").BooleanOK(); ok {
		rec.Unique = b
	}

	content, err := decodeContent(raw.Lookup("content"))
	if err != nil {
		return rec, fmt.Errorf("content: %w", err)
	}
	rec.Content = content

	embedding, err := decodeEmbedding(raw.Lookup("embedding"))
	if err != nil {
		return rec, fmt.Errorf("embedding: %w", err)
	}
	rec.Embedding = embedding

	createdAt, err := decodeTimestamp(raw.Lookup("createdAt"))
	if err != nil {
		return rec, fmt.Errorf("createdAt: %w", err)
	}
	rec.CreatedAt = createdAt

	// Structural flags live either top-level (knowledge documents) or in
	// content metadata (chunked payloads carried inline).
	if b, ok := raw.Lookup("isMain").BooleanOK(); ok {
		rec.IsMain = b
	} else {
		rec.IsMain = content.Flag("isMain")
	}
	if b, ok := raw.Lookup("isChunk").BooleanOK(); ok {
		rec.IsChunk = b
	} else {
		rec.IsChunk = content.Flag("isChunk")
	}

	return rec, nil
}

func decodeID(rv bson.RawValue) (string, error) {
	if s, ok := rv.StringValueOK(); ok {
		return s, nil
	}
	if oid, ok := rv.ObjectIDOK(); ok {
		return oid.Hex(), nil
	}
	return "", fmt.Errorf("unexpected _id type %s", rv.Type)
}

func decodeContent(rv bson.RawValue) (Content, error) {
	var c Content
	switch rv.Type {
	case bson.TypeEmbeddedDocument:
		doc, _ := rv.DocumentOK()
		if err := bson.Unmarshal(doc, &c); err != nil {
			return c, err
		}
		return c, nil
	case bson.TypeString:
		// Legacy writers stored the structured payload JSON-encoded.
		if err := json.Unmarshal([]byte(rv.StringValue()), &c); err != nil {
			return c, fmt.Errorf("string-encoded content: %w", err)
		}
		return c, nil
	case bsontype.Type(0):
		// Missing content is tolerated; the record simply has no text.
		return c, nil
	default:
		return c, fmt.Errorf("unexpected content type %s", rv.Type)
	}
}

func decodeEmbedding(rv bson.RawValue) ([]float32, error) {
	arr, ok := rv.ArrayOK()
	if !ok {
		return nil, nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil, err
	}
	embedding := make([]float32, 0, len(values))
	for _, v := range values {
		switch v.Type {
		case bson.TypeDouble:
			embedding = append(embedding, float32(v.Double()))
		case bson.TypeInt32:
			embedding = append(embedding, float32(v.Int32()))
		case bson.TypeInt64:
			embedding = append(embedding, float32(v.Int64()))
		default:
			return nil, fmt.Errorf("unexpected element type %s", v.Type)
		}
	}
	return embedding, nil
}

// decodeTimestamp normalizes Date, RFC 3339 string, and numeric epoch
// representations to unix milliseconds.
func decodeTimestamp(rv bson.RawValue) (int64, error) {
	switch rv.Type {
	case bson.TypeDateTime:
		return rv.DateTime(), nil
	case bson.TypeString:
		t, err := time.Parse(time.RFC3339Nano, rv.StringValue())
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	case bson.TypeInt64:
		return rv.Int64(), nil
	case bson.TypeInt32:
		return int64(rv.Int32()), nil
	case bson.TypeDouble:
		return int64(rv.Double()), nil
	case bsontype.Type(0):
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected timestamp type %s", rv.Type)
	}
}
