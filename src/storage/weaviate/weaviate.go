package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// SDK encapsulates the Weaviate operations the chunk store needs
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// GetClass returns the class definition, or nil when the class does not exist
func (w *SDK) GetClass(ctx context.Context, className string) (*models.Class, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return class, nil
		}
	}

	return nil, nil
}

// CreateSchema creates a new class schema in Weaviate. The description is
// stored on the class and read back on later runs.
func (w *SDK) CreateSchema(ctx context.Context, className, description string, properties []*models.Property) error {
	class := &models.Class{
		Class:       className,
		Description: description,
		Properties:  properties,
		Vectorizer:  "none",
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %v", err)
	}

	return nil
}

// DeleteSchema deletes a class schema from Weaviate
func (w *SDK) DeleteSchema(ctx context.Context, className string) error {
	err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete Weaviate class: %v", err)
	}

	return nil
}

// VectorObject represents a single object with its vector and properties
type VectorObject struct {
	Vector     []float32
	Properties map[string]interface{}
}

// BatchAddVectors adds multiple vector objects to a class in a single operation
func (w *SDK) BatchAddVectors(ctx context.Context, className string, objects []VectorObject) error {
	objs := make([]*models.Object, len(objects))
	for i, obj := range objects {
		objs[i] = &models.Object{
			Class:      className,
			Properties: obj.Properties,
			Vector:     obj.Vector,
		}
	}

	batcher := w.client.Batch().ObjectsBatcher()
	resp, err := batcher.WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %v", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}

	return nil
}

// QueryResult represents a single result from vector similarity search
type QueryResult struct {
	ID         string
	Distance   float64
	Properties map[string]interface{}
}

// QueryVectors performs vector similarity search in a class, nearest first
func (w *SDK) QueryVectors(ctx context.Context, className string, vector []float32, fieldNames []string, limit int) ([]QueryResult, error) {
	fields := make([]graphql.Field, len(fieldNames))
	for i, field := range fieldNames {
		fields[i] = graphql.Field{Name: field}
	}
	fields = append(fields, graphql.Field{Name: "_additional { id distance }"})

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %v", err)
	}

	var queryResults []QueryResult
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[className].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				additional, _ := objMap["_additional"].(map[string]interface{})

				properties := make(map[string]interface{})
				for k, v := range objMap {
					if k != "_additional" {
						properties[k] = v
					}
				}

				qr := QueryResult{Properties: properties}
				if additional != nil {
					qr.ID, _ = additional["id"].(string)
					qr.Distance, _ = additional["distance"].(float64)
				}
				queryResults = append(queryResults, qr)
			}
		}
	}

	return queryResults, nil
}
