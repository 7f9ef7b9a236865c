package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"ai-chat/internal/apperr"
	"ai-chat/internal/repository/db"

	"github.com/go-playground/validator/v10"
)

// newValidate builds a validator that reports fields by their json names and knows the
// cross-field rules of the schema.
func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(embeddingDimensionsMatch, db.MessageEmbedding{}, db.NewMessageEmbedding{})
	v.RegisterStructValidation(conversationTimestampsOrdered, db.NewConversation{})
	return v
}

func embeddingDimensionsMatch(sl validator.StructLevel) {
	var embedding []float32
	var dimensions int
	switch e := sl.Current().Interface().(type) {
	case db.MessageEmbedding:
		embedding, dimensions = e.Embedding, e.Dimensions
	case db.NewMessageEmbedding:
		embedding, dimensions = e.Embedding, e.Dimensions
	default:
		return
	}
	if dimensions > 0 && len(embedding) > 0 && len(embedding) != dimensions {
		sl.ReportError(embedding, "embedding", "Embedding", "eqdimensions", fmt.Sprintf("%d", dimensions))
	}
}

func conversationTimestampsOrdered(sl validator.StructLevel) {
	c, ok := sl.Current().Interface().(db.NewConversation)
	if !ok || c.CreatedAt == nil || c.UpdatedAt == nil {
		return
	}
	if c.UpdatedAt.Before(*c.CreatedAt) {
		sl.ReportError(c.UpdatedAt, "updatedAt", "UpdatedAt", "gtefield", "createdAt")
	}
}

// SchemaValidator provides the insert and select validators of the three persisted entities.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a new SchemaValidator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{validate: newValidate()}
}

func (v *SchemaValidator) ValidateConversationInsert(c *db.NewConversation) error {
	return checkStruct(v.validate, "conversation", c)
}

func (v *SchemaValidator) ValidateConversationSelect(c *db.Conversation) error {
	return checkStruct(v.validate, "conversation", c)
}

func (v *SchemaValidator) ValidateConversationUpdate(u *db.ConversationUpdate) error {
	if u != nil && u.Title == nil && u.Metadata == nil {
		return apperr.NewValidationError("conversation", "title", "required", "title or metadata must be provided")
	}
	if u != nil && u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return apperr.NewValidationError("conversation", "title", "required", "title cannot be empty")
	}
	return checkStruct(v.validate, "conversation", u)
}

func (v *SchemaValidator) ValidateMessageInsert(m *db.NewMessage) error {
	return checkStruct(v.validate, "message", m)
}

func (v *SchemaValidator) ValidateMessageSelect(m *db.Message) error {
	return checkStruct(v.validate, "message", m)
}

func (v *SchemaValidator) ValidateMessageEmbeddingInsert(e *db.NewMessageEmbedding) error {
	return checkStruct(v.validate, "message embedding", e)
}

func (v *SchemaValidator) ValidateMessageEmbeddingSelect(e *db.MessageEmbedding) error {
	return checkStruct(v.validate, "message embedding", e)
}

// checkStruct runs the struct tags and converts validator errors into an apperr.ValidationError.
func checkStruct(validate *validator.Validate, entity string, s any) error {
	if s == nil || (reflect.ValueOf(s).Kind() == reflect.Ptr && reflect.ValueOf(s).IsNil()) {
		return &apperr.ValidationError{Entity: entity, Err: errors.New("payload is missing")}
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &apperr.ValidationError{Entity: entity, Err: err}
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe)
		fields = append(fields, apperr.FieldError{
			Field:   path,
			Rule:    fe.Tag(),
			Message: describe(path, fe),
		})
	}
	return &apperr.ValidationError{Entity: entity, Fields: fields, Err: err}
}

// fieldPath drops the struct name from the namespace: "NewMessage.content.parts[0].type"
// becomes "content.parts[0].type".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be earlier than %s", field, fe.Param())
	case "eqdimensions":
		return fmt.Sprintf("%s length must equal dimensions (%s)", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}
