package store

import (
	"time"

	"codeberg.org/snonux/firetrans/internal/logger"
)

// DecodeRecord materializes a document. It returns false when a required
// field is missing or has the wrong type; such documents are skipped, since
// the collection may be shared with writers that use a different layout.
// The timestamp may be a native time or an RFC 3339 string.
func DecodeRecord(id string, fields map[string]any) (Record, bool) {
	if id == "" {
		return Record{}, false
	}

	original, ok := fields[FieldOriginalText].(string)
	if !ok {
		return Record{}, false
	}

	translated, ok := fields[FieldTranslatedText].(string)
	if !ok {
		return Record{}, false
	}

	var timestamp time.Time
	switch v := fields[FieldTimestamp].(type) {
	case time.Time:
		timestamp = v
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Record{}, false
		}
		timestamp = parsed
	default:
		return Record{}, false
	}

	return Record{
		ID:             id,
		OriginalText:   original,
		TranslatedText: translated,
		Timestamp:      timestamp,
	}, true
}

// encodeFields builds the document body for a new record
func encodeFields(originalText, translatedText string, timestamp any) map[string]any {
	return map[string]any{
		FieldOriginalText:   originalText,
		FieldTranslatedText: translatedText,
		FieldTimestamp:      timestamp,
	}
}

// appendDecoded decodes one document onto records, logging skipped ones
func appendDecoded(records []Record, collection, id string, fields map[string]any) []Record {
	record, ok := DecodeRecord(id, fields)
	if !ok {
		logger.Debug("skipping malformed document", "collection", collection, "id", id)
		return records
	}
	return append(records, record)
}
