// Package trigger turns Firestore document CloudEvents into certificate changes.
package trigger

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/googleapis/google-cloudevents-go/cloud/firestoredata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/certifyapp/certnotify/internal/model"
)

var (
	// ErrMalformedEvent is returned when the payload cannot be decoded.
	ErrMalformedEvent = errors.New("malformed document event")

	// ErrUnsupportedEvent is returned for events this service does not act on.
	ErrUnsupportedEvent = errors.New("unsupported document event")
)

// Firestore event types delivered by Eventarc
const (
	TypeDocumentUpdated = "google.cloud.firestore.document.v1.updated"
	TypeDocumentWritten = "google.cloud.firestore.document.v1.written"
)

// Certificate document fields
const (
	fieldName           = "name"
	fieldStatus         = "status"
	fieldRecipientEmail = "recipientEmail"
	fieldRecipient      = "recipient"
	fieldShareToken     = "shareToken"
)

// Decoder converts document events for one collection.
type Decoder struct {
	collection string
}

// NewDecoder creates a Decoder that accepts documents in collection.
func NewDecoder(collection string) *Decoder {
	return &Decoder{collection: collection}
}

// Decode extracts the before/after pair from a Firestore update event.
func (d *Decoder) Decode(e event.Event) (*model.CertificateChange, error) {
	if !isUpdateType(e.Type()) {
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedEvent, e.Type())
	}

	data, err := decodeData(e)
	if err != nil {
		return nil, err
	}

	// A written event without both images is a create or a delete.
	if data.GetOldValue() == nil || data.GetValue() == nil {
		return nil, fmt.Errorf("%w: not an update", ErrUnsupportedEvent)
	}

	docPath := data.GetValue().GetName()
	if docPath == "" {
		docPath = e.Subject()
	}
	collection, id, ok := splitDocumentPath(docPath)
	if !ok {
		return nil, fmt.Errorf("%w: cannot resolve document from %q", ErrMalformedEvent, docPath)
	}
	if collection != d.collection {
		return nil, fmt.Errorf("%w: collection %q", ErrUnsupportedEvent, collection)
	}

	return &model.CertificateChange{
		CertificateID: id,
		EventID:       e.ID(),
		Before:        recordFromDocument(data.GetOldValue()),
		After:         recordFromDocument(data.GetValue()),
	}, nil
}

func isUpdateType(t string) bool {
	return strings.HasPrefix(t, TypeDocumentUpdated) || strings.HasPrefix(t, TypeDocumentWritten)
}

func decodeData(e event.Event) (*firestoredata.DocumentEventData, error) {
	raw := e.Data()
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedEvent)
	}

	mediaType, _, err := mime.ParseMediaType(e.DataContentType())
	if err != nil {
		// Eventarc defaults to protobuf when the content type is absent
		mediaType = "application/protobuf"
	}

	var data firestoredata.DocumentEventData
	switch mediaType {
	case "application/json":
		err = protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(raw, &data)
	case "application/protobuf", "application/x-protobuf":
		err = proto.Unmarshal(raw, &data)
	default:
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedEvent, mediaType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	return &data, nil
}

// splitDocumentPath returns the collection path and id of a document path such as
// "projects/p/databases/(default)/documents/certificates/abc" or "documents/certificates/abc".
// For a nested document the collection is the full path below documents/, e.g.
// "orgs/o1/certificates", so it never matches a top-level collection name.
func splitDocumentPath(path string) (collection, id string, ok bool) {
	switch {
	case strings.HasPrefix(path, "documents/"):
		path = strings.TrimPrefix(path, "documents/")
	case strings.Contains(path, "/documents/"):
		path = path[strings.Index(path, "/documents/")+len("/documents/"):]
	default:
		return "", "", false
	}
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", "", false
	}
	for _, s := range segments {
		if s == "" {
			return "", "", false
		}
	}
	last := len(segments) - 1
	return strings.Join(segments[:last], "/"), segments[last], true
}

func recordFromDocument(doc *firestoredata.Document) model.CertificateRecord {
	fields := doc.GetFields()
	return model.CertificateRecord{
		Name:           stringField(fields, fieldName),
		Status:         model.CertificateStatus(stringField(fields, fieldStatus)),
		RecipientEmail: stringField(fields, fieldRecipientEmail),
		Recipient:      stringField(fields, fieldRecipient),
		ShareToken:     stringField(fields, fieldShareToken),
	}
}

// stringField returns the string value of a field, or "" when absent or not a string.
func stringField(fields map[string]*firestoredata.Value, key string) string {
	return fields[key].GetStringValue()
}
